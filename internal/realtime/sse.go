package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const ssePingInterval = 30 * time.Second

// HandleEvents streams the same frames as HandleWebSocket as Server-Sent
// Events, one "event: <type>" block per message.
func HandleEvents(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		client, err := hub.Register(r.Context())
		if err != nil {
			logger.Error("realtime replay failed", "error", err)
			http.Error(w, "state unavailable", http.StatusServiceUnavailable)
			return
		}
		defer hub.Unregister(client)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := hub.clock.NewTicker(ssePingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-client.Done():
				return
			case f := <-client.Frames():
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Type, f.Data); err != nil {
					return
				}
				flusher.Flush()
			case <-ping.Chan():
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
