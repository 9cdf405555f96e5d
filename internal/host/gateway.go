package host

import (
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"

	"github.com/dgnsrekt/chartbridge/internal/engine"
)

// GatewayHandler upgrades engine page connections to WebSocket and attaches
// them to the host. The engine page names itself via ?instance=small|full.
func GatewayHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instance := r.URL.Query().Get("instance")
		if instance != InstanceSmall && instance != InstanceFull {
			http.Error(w, "instance must be small or full", http.StatusBadRequest)
			return
		}

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Warn("engine websocket upgrade failed", "instance", instance, "error", err)
			return
		}

		c := engine.Attach(conn, instance, h)
		if err := h.AttachInstance(instance, c); err != nil {
			slog.Warn("engine attach rejected", "instance", instance, "error", err)
			c.Close()
		}
	}
}
