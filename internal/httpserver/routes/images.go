package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
	"github.com/MrSnakeDoc/curator/internal/httpserver/handlers"
)

func init() { Register(registerImages) }

// Only local backends are served here; GCS objects are public on their own.
func registerImages(r chi.Router, d deps.Deps) {
	if !d.ServeImages || d.Images == nil || !d.Images.Ready() {
		return
	}
	r.Get("/images/*", handlers.Image(d))
}
