package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/ten99/ten99/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a client
// of the signed-in owner.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := auth.OwnerID(r.Context())
		if ownerID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept failed", "error", err)
			return
		}

		NewClient(hub, conn, ownerID).Run(r.Context())
	}
}
