package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready       bool `json:"ready"`
	RecordStore bool `json:"record_store"`
	ImageStore  bool `json:"image_store"`
}

// Readyz reports 503 while either store is unconfigured.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{
			RecordStore: d.Records != nil && d.Records.Ready(),
			ImageStore:  d.Images != nil && d.Images.Ready(),
		}
		resp.Ready = resp.RecordStore && resp.ImageStore

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, status, resp)
	}
}
