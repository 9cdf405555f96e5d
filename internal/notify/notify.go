package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const sendTimeout = 5 * time.Second

// Notifier posts plain-text alerts to an NTFY-style endpoint. Delivery is
// best effort; a disabled notifier (empty endpoint) drops everything.
type Notifier struct {
	endpoint string
	client   *http.Client
}

// New builds a Notifier. client may be nil, endpoint may be empty to disable
// notifications entirely.
func New(endpoint string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &Notifier{endpoint: endpoint, client: client}
}

// LineCrossed reports that the live price of sym moved across a drawn
// trendline. Failures are logged, never returned; this runs off the host's
// hot path.
func (n *Notifier) LineCrossed(sym, lineID, from, to string) {
	if n.endpoint == "" {
		return
	}
	msg := fmt.Sprintf("%s crossed line %s: price moved from %s to %s", sym, lineID, from, to)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := Send(ctx, n.client, n.endpoint, msg); err != nil {
		slog.Warn("line-cross notification failed", "symbol", sym, "line_id", lineID, "error", err)
	}
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
