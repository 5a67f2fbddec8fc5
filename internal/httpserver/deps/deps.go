package deps

import (
	"time"

	"github.com/MrSnakeDoc/curator/internal/acquisitions"
	"github.com/MrSnakeDoc/curator/internal/blob"
	"github.com/MrSnakeDoc/curator/internal/logger"
	redisstore "github.com/MrSnakeDoc/curator/internal/store/redis"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedCIDRS []string              // IPs allowed to access the infra endpoint
	TrustProxy   bool                  // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Acquisitions *acquisitions.Service // Orchestrates record and image stores
	Records      *redisstore.Store     // Record store, used for readiness probes
	Images       *blob.ImageStore      // Image store, used for readiness probes and local image serving
	ServeImages  bool                  // Serve /images/* from the bucket (directory and memory backends)
	MaxBodySize  int64                 // Upper bound for multipart request bodies, in bytes
}
