package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/models"
)

// StoresHandler handles store connection management endpoints.
// Routes:
//
//	GET    /api/v1/stores             - List store connections
//	POST   /api/v1/stores             - Create a store connection
//	GET    /api/v1/stores/:id         - Get a store connection
//	PUT    /api/v1/stores/:id         - Update a store connection
//	DELETE /api/v1/stores/:id         - Delete a store connection
//	POST   /api/v1/stores/:id/test    - Test credentials against the API
//	GET    /api/v1/stores/:id/trees   - List the store's category trees
func StoresHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/stores"), "/")

		if path == "" {
			switch r.Method {
			case http.MethodGet:
				listStores(w, r, srv)
			case http.MethodPost:
				createStore(w, r, srv)
			default:
				respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
			return
		}

		parts := strings.Split(path, "/")
		id, err := parseResourceIDFromURL("/api/v1/stores/"+parts[0], "stores")
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid store ID")
			return
		}

		switch {
		case len(parts) == 1:
			switch r.Method {
			case http.MethodGet:
				getStore(w, r, srv, id)
			case http.MethodPut:
				updateStore(w, r, srv, id)
			case http.MethodDelete:
				deleteStore(w, r, srv, id)
			default:
				respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
		case len(parts) == 2 && parts[1] == "test" && r.Method == http.MethodPost:
			testStore(w, r, srv, id)
		case len(parts) == 2 && parts[1] == "trees" && r.Method == http.MethodGet:
			listStoreTrees(w, r, srv, id)
		default:
			respondError(w, http.StatusNotFound, "not found")
		}
	})
}

func listStores(w http.ResponseWriter, r *http.Request, srv server.Server) {
	var stores models.StoreConnections
	if storeType := r.URL.Query().Get("type"); storeType != "" {
		if err := stores.FindActiveByType(srv.DB, storeType); err != nil {
			srv.Logger.Error("failed to list store connections", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to list store connections")
			return
		}
	} else if err := stores.FindAll(srv.DB); err != nil {
		srv.Logger.Error("failed to list store connections", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list store connections")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"stores": stores,
		"count":  len(stores),
	})
}

// storeRequest is the write shape for connections. The access token is
// accepted on input but never echoed back.
type storeRequest struct {
	Name        string `json:"name"`
	StoreHash   string `json:"store_hash"`
	AccessToken string `json:"access_token"`
	Type        string `json:"type"`
	TreeID      int    `json:"tree_id"`
	TreeName    string `json:"tree_name"`
	IsActive    *bool  `json:"is_active"`
}

func createStore(w http.ResponseWriter, r *http.Request, srv server.Server) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc := &models.StoreConnection{
		Name:        req.Name,
		StoreHash:   req.StoreHash,
		AccessToken: req.AccessToken,
		Type:        req.Type,
		TreeID:      req.TreeID,
		TreeName:    req.TreeName,
		IsActive:    true,
	}
	if req.IsActive != nil {
		sc.IsActive = *req.IsActive
	}

	if err := sc.Create(srv.DB); err != nil {
		if strings.Contains(err.Error(), "validation error") {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		srv.Logger.Error("failed to create store connection", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create store connection")
		return
	}

	respondJSON(w, http.StatusCreated, sc)
}

func getStore(w http.ResponseWriter, _ *http.Request, srv server.Server, id uint) {
	sc, ok := loadStore(w, srv, id)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sc)
}

func updateStore(w http.ResponseWriter, r *http.Request, srv server.Server, id uint) {
	sc, ok := loadStore(w, srv, id)
	if !ok {
		return
	}

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		sc.Name = req.Name
	}
	if req.StoreHash != "" {
		sc.StoreHash = req.StoreHash
	}
	if req.AccessToken != "" {
		sc.AccessToken = req.AccessToken
	}
	if req.Type != "" {
		sc.Type = req.Type
	}
	if req.TreeID != 0 {
		sc.TreeID = req.TreeID
	}
	if req.TreeName != "" {
		sc.TreeName = req.TreeName
	}
	if req.IsActive != nil {
		sc.IsActive = *req.IsActive
	}

	if err := sc.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := sc.Update(srv.DB); err != nil {
		srv.Logger.Error("failed to update store connection", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update store connection")
		return
	}

	respondJSON(w, http.StatusOK, sc)
}

func deleteStore(w http.ResponseWriter, _ *http.Request, srv server.Server, id uint) {
	sc, ok := loadStore(w, srv, id)
	if !ok {
		return
	}
	if err := srv.DB.Delete(sc).Error; err != nil {
		srv.Logger.Error("failed to delete store connection", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete store connection")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "store connection deleted", "id": id})
}

func testStore(w http.ResponseWriter, r *http.Request, srv server.Server, id uint) {
	sc, ok := loadStore(w, srv, id)
	if !ok {
		return
	}

	client := srv.NewStoreClient(sc)
	info, err := client.TestConnection(r.Context())
	if err != nil {
		srv.Logger.Warn("store connection test failed", "id", id, "error", err)
		respondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if err := sc.MarkConnected(srv.DB); err != nil {
		srv.Logger.Error("failed to record connection test", "id", id, "error", err)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"store":   info,
	})
}

func listStoreTrees(w http.ResponseWriter, r *http.Request, srv server.Server, id uint) {
	sc, ok := loadStore(w, srv, id)
	if !ok {
		return
	}

	client := srv.NewStoreClient(sc)
	trees, err := client.CategoryTrees(r.Context())
	if err != nil {
		srv.Logger.Error("failed to list category trees", "id", id, "error", err)
		respondError(w, http.StatusBadGateway, "failed to list category trees")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"trees": trees,
		"count": len(trees),
	})
}
