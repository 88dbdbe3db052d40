package health

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
)

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health represents the health check response structure.
type Health struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	DB        componentStatus `json:"db"`
	Catalog   componentStatus `json:"catalog"`
}

// Check returns an HTTP handler that pings the user directory. The catalog
// service is reported as configured or not; it is never called from here.
func Check(db *gorm.DB, catalogConfigured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
			Catalog:   componentStatus{Status: "ok"},
		}
		if !catalogConfigured {
			health.Status = "degraded"
			health.Catalog = componentStatus{Status: "error", Message: "Catalog API key missing"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			health.Status = "degraded"
			health.DB = componentStatus{Status: "error", Message: "Failed to get database connection"}
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			health.Status = "degraded"
			health.DB = componentStatus{Status: "error", Message: "Database ping failed"}
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		health.DB.Status = "ok"
		status := http.StatusOK
		if health.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, health, status)
	}
}

func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoniter.NewEncoder(w).Encode(health); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
