package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
	"github.com/MrSnakeDoc/curator/internal/httpserver/handlers"
)

func init() { Register(registerAcquisitions) }

func registerAcquisitions(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Root(d))

	// Both "/acquisitions" and "/acquisitions/" are served.
	for _, base := range []string{"/acquisitions", "/acquisitions/"} {
		r.Post(base, handlers.CreateAcquisition(d))
		r.Get(base, handlers.ListAcquisitions(d))
	}

	r.Get("/acquisitions/{id}", handlers.GetAcquisition(d))
	r.Put("/acquisitions/{id}", handlers.UpdateAcquisition(d))
	r.Delete("/acquisitions/{id}", handlers.DeleteAcquisition(d))
}
