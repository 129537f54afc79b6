package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/engine"
	"github.com/DoyleJ11/turnsync/internal/hub"
	"github.com/DoyleJ11/turnsync/internal/session"
	"github.com/DoyleJ11/turnsync/internal/store"
	"github.com/DoyleJ11/turnsync/internal/types"
	"github.com/DoyleJ11/turnsync/internal/ws"
)

// GameLister fetches the public game list from the live tier.
type GameLister interface {
	GameList(ctx context.Context) ([]byte, error)
}

type startRequest struct {
	GameID   int    `json:"gameID"`
	PlayerID int    `json:"playerID"`
	AuthKey  string `json:"authKey"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// lookup resolves {gameID} to a running session, answering the request
// itself when there is none.
func lookup(h *hub.Hub, w http.ResponseWriter, r *http.Request) *session.Session {
	gameID, err := strconv.Atoi(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return nil
	}
	s, err := h.Get(r.Context(), gameID)
	if err != nil {
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return nil
	}
	if s == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil
	}
	return s
}

func StartSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.GameID == 0 || req.AuthKey == "" {
			http.Error(w, "gameID and authKey are required", http.StatusBadRequest)
			return
		}

		s, created, err := h.Start(r.Context(), engine.Identity{GameID: req.GameID, PlayerID: req.PlayerID, AuthKey: req.AuthKey})
		if errors.Is(err, hub.ErrIdentityMismatch) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, "failed to start session", http.StatusServiceUnavailable)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		id := s.Identity()
		id.AuthKey = ""
		writeJSON(w, status, id)
	}
}

func ListSessions(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := h.List(r.Context())
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		for i := range ids {
			ids[i].AuthKey = ""
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

func EndSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := strconv.Atoi(chi.URLParam(r, "gameID"))
		if err != nil {
			http.Error(w, "bad game id", http.StatusBadRequest)
			return
		}
		ended, err := h.End(r.Context(), gameID)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if !ended {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(h, w, r)
		if s == nil {
			return
		}
		v, err := s.Store.View(r.Context())
		if err != nil {
			http.Error(w, "session ended", http.StatusGone)
			return
		}
		v.State.Info.AuthKey = ""
		writeJSON(w, http.StatusOK, v)
	}
}

func RequestSync(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(h, w, r)
		if s == nil {
			return
		}
		s.Poller.Trigger()
		w.WriteHeader(http.StatusAccepted)
	}
}

// PostMessage accepts the same messages as the websocket: actions, chat and
// local mutations.
func PostMessage(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(h, w, r)
		if s == nil {
			return
		}
		var cm types.ClientMessage
		if err := json.NewDecoder(r.Body).Decode(&cm); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		err := ws.Execute(r.Context(), s, cm)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case errors.Is(err, store.ErrInputInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ws.ErrUnknownType), errors.Is(err, ws.ErrBadMessage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, store.ErrClosed):
			http.Error(w, "session ended", http.StatusGone)
		default:
			log.Warn("client message failed", zap.String("type", cm.Type), zap.Error(err))
			http.Error(w, "upstream error", http.StatusBadGateway)
		}
	}
}

func PostChat(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(h, w, r)
		if s == nil {
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}
		if err := s.SubmitChat(r.Context(), req.Text); err != nil {
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func PopupContent(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := lookup(h, w, r)
		if s == nil {
			return
		}
		index := 0
		if raw := r.URL.Query().Get("index"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "bad index", http.StatusBadRequest)
				return
			}
			index = n
		}
		body, err := s.PopupContent(r.Context(), chi.URLParam(r, "popupType"), index)
		if err != nil {
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		writeRaw(w, body)
	}
}

func GameList(api GameLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := api.GameList(r.Context())
		if err != nil {
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		writeRaw(w, body)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
