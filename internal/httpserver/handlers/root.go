package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
)

const rootMessage = "Inventory & Curation Module Backend - API Active"

type rootResponse struct {
	Message string `json:"message"`
}

// Root answers even when both stores are unavailable.
func Root(_ deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rootResponse{Message: rootMessage})
	}
}
