package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/turnsync/internal/hub"
	"github.com/DoyleJ11/turnsync/internal/ws"
)

func SetupRoutes(h *hub.Hub, games GameLister, log *zap.Logger) http.Handler {
	log = log.Named("httpapi")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/games", GameList(games))
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", ListSessions(h))
		r.Post("/", StartSession(h))

		r.Route("/{gameID}", func(r chi.Router) {
			r.Delete("/", EndSession(h))
			r.Get("/state", GetState(h))
			r.Post("/sync", RequestSync(h))
			r.Post("/actions", PostMessage(h, log))
			r.Post("/ui", PostMessage(h, log))
			r.Post("/chat", PostChat(h))
			r.Get("/popups/{popupType}", PopupContent(h))
		})
	})
	return r
}
