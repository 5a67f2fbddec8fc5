package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/curator/internal/blob"
	"github.com/MrSnakeDoc/curator/internal/domain"
	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
)

// Image serves blobs of local backends at their public address.
func Image(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket := d.Images.Bucket()
		if bucket == nil {
			writeError(w, r, d.Logger, domain.ErrUnavailable)
			return
		}

		data, contentType, err := bucket.Open(r.Context(), chi.URLParam(r, "*"))
		if err != nil {
			if errors.Is(err, blob.ErrObjectNotFound) || errors.Is(err, blob.ErrInvalidKey) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "image not found"})
				return
			}
			writeError(w, r, d.Logger, err)
			return
		}

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
	}
}
