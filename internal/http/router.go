package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(handler.logger))
	r.Use(Recoverer(handler.logger))
	r.Use(Timeout)

	r.Get("/healthz", handler.Health)

	r.Group(func(r chi.Router) {
		r.Use(NoStore)

		r.Get("/", handler.Index)
		r.Get("/login", handler.Login)
		r.Get("/callback", handler.Callback)
		r.Get("/dashboard", handler.Dashboard)
		r.Post("/dashboard", handler.Dashboard)
		r.Get("/refresh", handler.Refresh)
		r.Get("/logout", handler.Logout)
		r.Get("/activity", handler.ListActivity)
	})

	return r
}
