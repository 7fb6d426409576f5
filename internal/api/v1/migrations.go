package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/migration"
	"github.com/storeforge/catsync/pkg/models"
)

// Migration operations accepted by the run endpoint.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationAll    = "all"
)

// MigrationsHandler handles migration run and log endpoints.
// Routes:
//
//	POST /api/v1/migrations      - Run a migration batch
//	GET  /api/v1/migrations      - List migration logs
//	GET  /api/v1/migrations/:id  - Get one migration log
func MigrationsHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/migrations"), "/")

		if path == "" {
			switch r.Method {
			case http.MethodPost:
				runMigration(w, r, srv)
			case http.MethodGet:
				listMigrationLogs(w, r, srv)
			default:
				respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
			return
		}

		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := parseResourceIDFromURL(r.URL.Path, "migrations")
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid migration log ID")
			return
		}
		getMigrationLog(w, r, srv, id)
	})
}

// RunMigrationRequest is the run endpoint's request body. The subset
// fields are taken from a prior comparison: categories drives create
// and delete operations, updates drives the update operation, and the
// "all" operation consumes all three.
type RunMigrationRequest struct {
	SourceStoreID uint   `json:"source_store_id"`
	TargetStoreID uint   `json:"target_store_id"`
	Operation     string `json:"operation"`

	Categories []bigcommerce.Category `json:"categories,omitempty"`
	Updates    []migration.Update     `json:"updates,omitempty"`
	Deleted    []bigcommerce.Category `json:"deleted,omitempty"`
}

func (req *RunMigrationRequest) itemCount() int {
	switch req.Operation {
	case OperationUpdate:
		return len(req.Updates)
	case OperationAll:
		return len(req.Categories) + len(req.Updates) + len(req.Deleted)
	default:
		return len(req.Categories)
	}
}

// logRecorder persists running batch state into the migration log row
// after every processed item.
type logRecorder struct {
	srv server.Server
	log *models.MigrationLog
}

func (r *logRecorder) Record(result *migration.BatchResult) {
	err := r.log.UpdateProgress(r.srv.DB,
		models.MustJSON(resultCounters(result)),
		models.MustJSON(result.Details))
	if err != nil {
		r.srv.Logger.Warn("failed to persist migration progress",
			"log_id", r.log.ID, "error", err)
	}
}

// resultCounters strips the detail list so the results column holds
// aggregate counts only.
func resultCounters(result *migration.BatchResult) map[string]int {
	return map[string]int{
		"created": result.Created,
		"updated": result.Updated,
		"deleted": result.Deleted,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}
}

func runMigration(w http.ResponseWriter, r *http.Request, srv server.Server) {
	var req RunMigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Operation {
	case OperationCreate, OperationUpdate, OperationDelete, OperationAll:
	default:
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown operation %q", req.Operation))
		return
	}

	source, ok := loadStore(w, srv, req.SourceStoreID)
	if !ok {
		return
	}
	target, ok := loadStore(w, srv, req.TargetStoreID)
	if !ok {
		return
	}

	log := &models.MigrationLog{
		SourceStoreID:   source.ID,
		TargetStoreID:   target.ID,
		Operation:       req.Operation,
		CategoriesCount: req.itemCount(),
	}
	if err := log.Create(srv.DB); err != nil {
		srv.Logger.Error("failed to create migration log", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create migration log")
		return
	}
	if err := log.MarkStarted(srv.DB); err != nil {
		srv.Logger.Error("failed to start migration log", "log_id", log.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to start migration")
		return
	}

	engine := migration.New(
		srv.NewStoreClient(source),
		srv.NewStoreClient(target),
		migration.NewDBMappingStore(srv.DB),
		srv.Logger,
		migration.WithPacing(srv.Config.Pacing()),
		migration.WithRecorder(&logRecorder{srv: srv, log: log}),
	)

	logger := srv.Logger.With("run_uuid", log.RunUUID.String(), "operation", req.Operation)
	logger.Info("migration started",
		"source_store_id", source.ID, "target_store_id", target.ID,
		"items", log.CategoriesCount)

	var (
		result *migration.BatchResult
		runErr error
	)
	ctx := r.Context()
	switch req.Operation {
	case OperationCreate:
		result, runErr = engine.Migrate(ctx, req.Categories, source.ID, target.ID, target.TreeID, nil)
	case OperationUpdate:
		result, runErr = engine.UpdateCategories(ctx, req.Updates, nil)
	case OperationDelete:
		result, runErr = engine.DeleteCategories(ctx, req.Categories, target.TreeID, nil)
	case OperationAll:
		result, runErr = engine.RunAll(ctx, migration.Selection{
			Missing: req.Categories,
			Updated: req.Updates,
			Deleted: req.Deleted,
		}, source.ID, target.ID, target.TreeID, nil)
	}

	if err := log.UpdateProgress(srv.DB,
		models.MustJSON(resultCounters(result)),
		models.MustJSON(result.Details)); err != nil {
		logger.Warn("failed to persist final migration details", "error", err)
	}

	finishLog(srv, logger, log, result, runErr)

	respondJSON(w, http.StatusOK, map[string]any{
		"log":     log,
		"results": result,
	})
}

// finishLog applies the terminal state rules: any failure with no
// success is failed, a mix is partial, no failures is completed. A run
// error (such as cancellation) marks the log failed outright.
func finishLog(srv server.Server, logger hclog.Logger, log *models.MigrationLog, result *migration.BatchResult, runErr error) {
	results := models.MustJSON(resultCounters(result))

	var err error
	switch {
	case runErr != nil:
		err = log.MarkFailed(srv.DB, runErr.Error())
	case result.Failed > 0 && result.Successes() == 0:
		err = log.MarkFailed(srv.DB, "all operations failed")
	case result.Failed > 0:
		err = log.MarkPartial(srv.DB, results)
	default:
		err = log.MarkCompleted(srv.DB, results)
	}
	if err != nil {
		logger.Error("failed to finalize migration log", "log_id", log.ID, "error", err)
		return
	}

	logger.Info("migration finished",
		"status", log.Status,
		"created", result.Created, "updated", result.Updated,
		"deleted", result.Deleted, "skipped", result.Skipped,
		"failed", result.Failed)
}

func listMigrationLogs(w http.ResponseWriter, r *http.Request, srv server.Server) {
	filter := models.LogFilter{
		Status:        r.URL.Query().Get("status"),
		SourceStoreID: queryUint(r, "source_store_id"),
		TargetStoreID: queryUint(r, "target_store_id"),
		Limit:         queryInt(r, "limit", 50),
		Offset:        queryInt(r, "offset", 0),
	}

	var logs models.MigrationLogs
	total, err := logs.Find(srv.DB, filter)
	if err != nil {
		srv.Logger.Error("failed to list migration logs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list migration logs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
		"total": total,
	})
}

func getMigrationLog(w http.ResponseWriter, _ *http.Request, srv server.Server, id uint) {
	log := &models.MigrationLog{ID: id}
	if err := log.Get(srv.DB); err != nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("migration log %d not found", id))
		return
	}
	respondJSON(w, http.StatusOK, log)
}
