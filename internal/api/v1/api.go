package api

import (
	"net/http"

	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/database"
)

// RegisterRoutes attaches all v1 handlers to the mux.
func RegisterRoutes(mux *http.ServeMux, srv server.Server) {
	mux.Handle("/api/v1/stores", StoresHandler(srv))
	mux.Handle("/api/v1/stores/", StoresHandler(srv))
	mux.Handle("/api/v1/categories/", CategoriesHandler(srv))
	mux.Handle("/api/v1/migrations", MigrationsHandler(srv))
	mux.Handle("/api/v1/migrations/", MigrationsHandler(srv))
	mux.Handle("/health", HealthHandler(srv))
}

// HealthHandler reports service liveness and connection pool state.
func HealthHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		stats, err := database.GetPoolStats(srv.DB)
		if err != nil {
			srv.Logger.Error("health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"database": map[string]any{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			},
		})
	})
}
