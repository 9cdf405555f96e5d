package engine

import (
	"encoding/json"
	"log/slog"
	"net"
	"sync"

	"github.com/gobwas/ws/wsutil"
)

// Handler receives traffic from an instance channel. HandleMessage sees every
// well-formed message in emission order; ConnClosed fires once when the read
// loop exits.
type Handler interface {
	HandleMessage(instance string, msg Message)
	ConnClosed(instance string, c *Conn)
}

// Conn is one message channel to an embedded chart engine instance. The
// engine page dials in over WebSocket as soon as it loads; frames are JSON
// text and arrive in emission order per instance.
type Conn struct {
	instance string

	writeMu sync.Mutex
	conn    net.Conn

	closeOnce sync.Once
}

// Attach wraps an upgraded server-side WebSocket and starts the read loop.
func Attach(conn net.Conn, instance string, h Handler) *Conn {
	c := &Conn{instance: instance, conn: conn}
	go c.readLoop(h)
	return c
}

// Instance returns the instance name this channel serves.
func (c *Conn) Instance() string { return c.instance }

// Send posts one command to the engine. A returned error means the command
// was dropped; callers log it and move on, never retry.
func (c *Conn) Send(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return NewError(CodeValidation, "marshal command", err)
	}

	c.writeMu.Lock()
	err = wsutil.WriteServerText(c.conn, data)
	c.writeMu.Unlock()
	if err != nil {
		return NewError(CodeEngineUnavailable, "post to "+c.instance+" instance failed", err)
	}

	slog.Debug("engine command sent", "instance", c.instance, "type", cmd.Type, "id", cmd.ID)
	return nil
}

// Close tears the channel down; a pending read unblocks and ends the loop.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) readLoop(h Handler) {
	defer h.ConnClosed(c.instance, c)
	for {
		data, err := wsutil.ReadClientText(c.conn)
		if err != nil {
			slog.Debug("engine read loop exit", "instance", c.instance, "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			slog.Warn("malformed engine message discarded", "instance", c.instance, "error", err)
			continue
		}
		h.HandleMessage(c.instance, msg)
	}
}
