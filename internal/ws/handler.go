package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/hub"
	"github.com/DoyleJ11/turnsync/internal/store"
	"github.com/DoyleJ11/turnsync/internal/types"
)

// Handler streams a session's views to one presentation client and feeds
// its messages back into the session.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := strconv.Atoi(r.URL.Query().Get("game"))
		if err != nil {
			http.Error(w, "missing or bad game", http.StatusBadRequest)
			return
		}

		sess, err := h.Get(r.Context(), gameID)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan store.View, 8)
		clientID := uuid.NewString()
		log := log.With(zap.Int("game_id", gameID), zap.String("client_id", clientID))

		if err := sess.Store.Subscribe(r.Context(), clientID, out); err != nil {
			conn.Close(websocket.StatusGoingAway, "session ended")
			return
		}
		defer func() { _ = sess.Store.Unsubscribe(context.Background(), clientID) }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for v := range out {
				v.State.Info.AuthKey = ""
				msg := types.ServerMessage{Type: "StateSnapshot", Version: v.Version, State: &v.State}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
					log.Debug("write view", zap.Error(err))
				}
				cancel()
			}
			// Store closed or dropped us as too slow.
			conn.Close(websocket.StatusGoingAway, "stream ended")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				log.Debug("read", zap.Error(err))
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}
			if err := Execute(r.Context(), sess, cm); err != nil {
				writeError(r.Context(), conn, err.Error())
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
