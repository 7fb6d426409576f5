package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/catalog"
	"github.com/storeforge/catsync/pkg/models"
)

// CategoriesHandler handles category browsing and comparison endpoints.
// Routes:
//
//	GET /api/v1/categories/source   - Source store categories with paths
//	GET /api/v1/categories/target   - Target store categories with paths
//	GET /api/v1/categories/compare  - Diff source against target
//	GET /api/v1/categories/search   - Search comparison results by name
//	GET /api/v1/categories/export   - Download the comparison as a file
func CategoriesHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/categories"), "/")
		switch path {
		case "source":
			listStoreCategories(w, r, srv, models.StoreTypeSource)
		case "target":
			listStoreCategories(w, r, srv, models.StoreTypeTarget)
		case "compare":
			compareCategories(w, r, srv)
		case "search":
			searchCategories(w, r, srv)
		case "export":
			exportComparison(w, r, srv)
		default:
			respondError(w, http.StatusNotFound, "not found")
		}
	})
}

// fetchStoreCategories pulls a store's categories, scoped to its
// configured tree when one is set.
func fetchStoreCategories(ctx context.Context, srv server.Server, sc *models.StoreConnection) ([]bigcommerce.Category, error) {
	client := srv.NewStoreClient(sc)
	if sc.TreeID > 0 {
		return client.CategoriesByTree(ctx, sc.TreeID)
	}
	return client.AllCategories(ctx)
}

func listStoreCategories(w http.ResponseWriter, r *http.Request, srv server.Server, wantType string) {
	sc, ok := loadStore(w, srv, queryUint(r, "store_id"))
	if !ok {
		return
	}
	if sc.Type != wantType {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("store %d is not a %s store", sc.ID, wantType))
		return
	}

	categories, err := fetchStoreCategories(r.Context(), srv, sc)
	if err != nil {
		srv.Logger.Error("failed to fetch categories", "store_id", sc.ID, "error", err)
		respondError(w, http.StatusBadGateway, "failed to fetch categories from store")
		return
	}

	entries := make([]catalog.Info, 0, len(categories))
	for _, cat := range categories {
		entries = append(entries, catalog.ExtractInfo(cat, categories))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"store_id":   sc.ID,
		"categories": entries,
		"count":      len(entries),
	})
}

// runComparison fetches both stores and diffs them.
func runComparison(ctx context.Context, srv server.Server, sourceID, targetID uint) (*catalog.Comparison, error) {
	source := &models.StoreConnection{ID: sourceID}
	if err := source.Get(srv.DB); err != nil {
		return nil, fmt.Errorf("source store %d not found", sourceID)
	}
	target := &models.StoreConnection{ID: targetID}
	if err := target.Get(srv.DB); err != nil {
		return nil, fmt.Errorf("target store %d not found", targetID)
	}

	sourceCats, err := fetchStoreCategories(ctx, srv, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source categories: %w", err)
	}
	targetCats, err := fetchStoreCategories(ctx, srv, target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target categories: %w", err)
	}

	return catalog.Compare(sourceCats, targetCats), nil
}

func compareCategories(w http.ResponseWriter, r *http.Request, srv server.Server) {
	sourceID := queryUint(r, "source_id")
	targetID := queryUint(r, "target_id")
	if sourceID == 0 || targetID == 0 {
		respondError(w, http.StatusBadRequest, "source_id and target_id are required")
		return
	}

	comparison, err := runComparison(r.Context(), srv, sourceID, targetID)
	if err != nil {
		srv.Logger.Error("comparison failed", "source_id", sourceID, "target_id", targetID, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Optional bucket filter.
	if status := r.URL.Query().Get("status"); status != "" {
		bucket := catalog.FilterByStatus(comparison, status)
		if bucket == nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  status,
			"results": bucket,
			"summary": comparison.Summary,
		})
		return
	}

	respondJSON(w, http.StatusOK, comparison)
}

func searchCategories(w http.ResponseWriter, r *http.Request, srv server.Server) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	sourceID := queryUint(r, "source_id")
	targetID := queryUint(r, "target_id")
	if sourceID == 0 || targetID == 0 {
		respondError(w, http.StatusBadRequest, "source_id and target_id are required")
		return
	}

	comparison, err := runComparison(r.Context(), srv, sourceID, targetID)
	if err != nil {
		srv.Logger.Error("comparison failed", "source_id", sourceID, "target_id", targetID, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	results := catalog.Search(comparison, query)
	respondJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func exportComparison(w http.ResponseWriter, r *http.Request, srv server.Server) {
	sourceID := queryUint(r, "source_id")
	targetID := queryUint(r, "target_id")
	if sourceID == 0 || targetID == 0 {
		respondError(w, http.StatusBadRequest, "source_id and target_id are required")
		return
	}

	comparison, err := runComparison(r.Context(), srv, sourceID, targetID)
	if err != nil {
		srv.Logger.Error("comparison failed", "source_id", sourceID, "target_id", targetID, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	filename := fmt.Sprintf("category-comparison-%s.json", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	respondJSON(w, http.StatusOK, comparison)
}
