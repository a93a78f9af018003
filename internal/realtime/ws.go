package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

type WSOptions struct {
	// OriginPatterns is passed to websocket.Accept. Empty means same origin only.
	OriginPatterns []string
	PingInterval   time.Duration
}

// HandleWebSocket streams hub frames to a WebSocket client. Incoming data
// frames are discarded; the read side only exists to observe close frames.
func HandleWebSocket(hub *Hub, logger *slog.Logger, opts WSOptions) http.HandlerFunc {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		client, err := hub.Register(r.Context())
		if err != nil {
			logger.Error("realtime replay failed", "error", err)
			conn.Close(websocket.StatusInternalError, "state unavailable")
			return
		}
		defer hub.Unregister(client)

		ctx := conn.CloseRead(r.Context())

		ping := hub.clock.NewTicker(opts.PingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket closed", "client_id", client.ID(), "error", context.Cause(ctx))
				return
			case <-client.Done():
				conn.Close(websocket.StatusPolicyViolation, "client too slow")
				return
			case f := <-client.Frames():
				if err := write(ctx, conn, f.Data); err != nil {
					logger.Debug("websocket write failed", "client_id", client.ID(), "error", err)
					return
				}
			case <-ping.Chan():
				pctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					logger.Debug("websocket ping failed", "client_id", client.ID(), "error", err)
					return
				}
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
