package livetail

import (
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Handler upgrades HTTP requests to WebSocket and streams published
// envelopes until the client goes away.
func Handler(broker *Broker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("live tail upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}

		id, ch := broker.Subscribe()
		slog.Debug("live tail client connected", "subscriber_id", id, "remote", r.RemoteAddr)

		go func() {
			defer func() {
				broker.Unsubscribe(id)
				_ = conn.Close()
				slog.Debug("live tail client disconnected", "subscriber_id", id)
			}()

			// Drain control frames so close/ping from the client is noticed.
			readErr := make(chan struct{})
			go func() {
				defer close(readErr)
				for {
					if _, _, err := wsutil.ReadClientData(conn); err != nil {
						return
					}
				}
			}()

			for {
				select {
				case payload, ok := <-ch:
					if !ok {
						return
					}
					if err := wsutil.WriteServerText(conn, payload); err != nil {
						return
					}
				case <-readErr:
					return
				}
			}
		}()
	})
}
