// Package http is the UI-facing API surface of the messaging core.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the chi router over the three handlers.
func NewRouter(messages *MessageHandler, threads *ThreadHandler, settings *SettingsHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/messages", func(r chi.Router) {
			r.Post("/sms", messages.SendSMS)
			r.Post("/mms", messages.SendMMS)
			r.Get("/search", messages.Search)
			r.Get("/{id}", messages.Get)
			r.Post("/{id}/retry", messages.Retry)
			r.Get("/{id}/attachments", messages.Attachments)
		})

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", threads.List)
			r.Get("/search", threads.Search)
			r.Get("/{id}", threads.Get)
			r.Patch("/{id}", threads.UpdateFlags)
			r.Delete("/{id}", threads.Delete)
			r.Get("/{id}/messages", threads.Messages)
			r.Post("/{id}/read", threads.MarkRead)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/{key}", settings.Get)
			r.Put("/{key}", settings.Put)
		})

		r.Post("/contacts/sync", settings.SyncContacts)
	})

	return r
}
