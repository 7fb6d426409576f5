// Package api implements the v1 HTTP API: store connections, category
// browsing and comparison, and migration runs with their audit logs.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/models"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// parseResourceIDFromURL parses a URL path with the format
// "/api/v1/{apiPath}/{resourceID}" and returns the numeric resource ID.
func parseResourceIDFromURL(url, apiPath string) (uint, error) {
	url = strings.TrimPrefix(url, fmt.Sprintf("/api/v1/%s", apiPath))

	urlPath := strings.Split(url, "/")
	var resultPath []string
	for _, v := range urlPath {
		if v != "" {
			resultPath = append(resultPath, v)
		}
	}
	if len(resultPath) != 1 {
		return 0, fmt.Errorf("invalid URL path")
	}

	id, err := strconv.ParseUint(resultPath[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid resource ID: %w", err)
	}
	return uint(id), nil
}

// queryUint reads a numeric query parameter, returning 0 when absent.
func queryUint(r *http.Request, key string) uint {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// queryInt reads a numeric query parameter, returning def when absent
// or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// loadStore fetches a store connection by id, writing the HTTP error
// itself when the lookup fails.
func loadStore(w http.ResponseWriter, srv server.Server, id uint) (*models.StoreConnection, bool) {
	if id == 0 {
		respondError(w, http.StatusBadRequest, "store id is required")
		return nil, false
	}
	sc := &models.StoreConnection{ID: id}
	if err := sc.Get(srv.DB); err != nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("store connection %d not found", id))
		return nil, false
	}
	return sc, true
}
