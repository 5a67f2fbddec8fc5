package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/docker/go-units"

	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
)

const infraPingTimeout = 2 * time.Second

type componentStatus struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Name    string `json:"name,omitempty"`
	Limit   string `json:"limit,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"record_store": checkRecordStore(r.Context(), d),
			"image_store":  checkImageStore(d),
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "operational"
}

func checkRecordStore(parent context.Context, d deps.Deps) componentStatus {
	status := componentStatus{Backend: "redis"}
	if d.Records == nil || !d.Records.Ready() {
		status.Impact = "acquisitions-unavailable"
		status.Error = "client not initialized"
		return status
	}

	ctx, cancel := context.WithTimeout(parent, infraPingTimeout)
	defer cancel()

	if err := d.Records.Ping(ctx); err != nil {
		status.Impact = "acquisitions-unavailable"
		status.Error = err.Error()
		return status
	}

	status.OK = true
	return status
}

func checkImageStore(d deps.Deps) componentStatus {
	status := componentStatus{}
	if d.Images == nil || !d.Images.Ready() {
		status.Impact = "acquisitions-unavailable"
		status.Error = "bucket not configured"
		return status
	}

	bucket := d.Images.Bucket()
	status.OK = true
	status.Name = bucket.Name()
	status.Limit = units.BytesSize(float64(d.Images.MaxSize()))
	return status
}
