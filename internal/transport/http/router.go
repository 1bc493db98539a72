package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"yds-challenge-service/internal/app"
)

// NewRouter mounts the room API, the watch socket and the health check.
func NewRouter(service *app.RoomService, logger *zap.Logger, watchInterval time.Duration) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	rooms := NewRoomHandler(service, logger)
	ws := NewWSHandler(service, logger, watchInterval)

	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/api/badges", rooms.Badges)
	r.Get("/api/stats/{userId}", rooms.Stats)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/create", rooms.Create)
		r.Post("/join", rooms.Join)
		r.Post("/ready", rooms.Ready)
		r.Post("/start", rooms.Start)
		r.Post("/answer", rooms.Answer)
		r.Post("/next", rooms.Next)
		r.Post("/end", rooms.End)
		r.Post("/leave", rooms.Leave)

		r.Get("/templates/list", rooms.Templates)
		r.Get("/history/{username}", rooms.History)

		r.Get("/{code}", rooms.State)
		r.Get("/{code}/results", rooms.Results)
		r.Put("/{code}/settings", rooms.Settings)
		r.Get("/{code}/chat", rooms.ListChat)
		r.Post("/{code}/chat", rooms.PostChat)
		r.Get("/{code}/ws", ws.ServeWS)
	})
	return r
}
