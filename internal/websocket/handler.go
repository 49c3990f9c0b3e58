package websocket

import (
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/choretracker/internal/auth"
)

// HandleWebSocket upgrades authenticated requests and runs them as hub
// clients. The optional group_id query parameter scopes the feed.
// originPatterns lists the extra hosts allowed to connect cross-origin.
func HandleWebSocket(hub *Hub, logger *slog.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var groupID int64
		if v := r.URL.Query().Get("group_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid group_id", http.StatusBadRequest)
				return
			}
			groupID = id
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		userID := auth.UserID(r.Context())
		logger.Debug("websocket connected", "user_id", userID, "group_id", groupID)
		NewClient(hub, conn, userID, groupID).Run(r.Context())
	}
}
