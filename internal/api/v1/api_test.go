package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storeforge/catsync/internal/config"
	"github.com/storeforge/catsync/internal/server"
	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/models"
)

// fakeStore implements server.StoreAPI in memory, keyed by store hash so
// one factory can serve both sides of a migration.
type fakeStore struct {
	categories map[int]*bigcommerce.Category
	nextID     int
	created    []string
	deleted    []int
	failCreate bool
}

func (f *fakeStore) CategoryByID(_ context.Context, id int) (*bigcommerce.Category, error) {
	cat, ok := f.categories[id]
	if !ok {
		return nil, nil
	}
	copied := *cat
	return &copied, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, payload *bigcommerce.CreateCategoryPayload) (int, error) {
	if f.failCreate {
		return 0, errors.New("create rejected")
	}
	f.nextID++
	f.created = append(f.created, payload.Name)
	return f.nextID, nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, _ int, _ map[string]any) error {
	return nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id, _ int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) TestConnection(_ context.Context) (*bigcommerce.StoreInfo, error) {
	return &bigcommerce.StoreInfo{Name: "Fake Store"}, nil
}

func (f *fakeStore) CategoryTrees(_ context.Context) ([]bigcommerce.Tree, error) {
	return []bigcommerce.Tree{{ID: 1, Name: "Default"}}, nil
}

func (f *fakeStore) AllCategories(_ context.Context) ([]bigcommerce.Category, error) {
	var all []bigcommerce.Category
	for _, c := range f.categories {
		all = append(all, *c)
	}
	return all, nil
}

func (f *fakeStore) CategoriesByTree(ctx context.Context, _ int) ([]bigcommerce.Category, error) {
	return f.AllCategories(ctx)
}

type testEnv struct {
	srv    server.Server
	mux    *http.ServeMux
	stores map[string]*fakeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.ModelsToAutoMigrate()...))

	cfg := config.Default()
	cfg.Migration.PacingMS = 1

	env := &testEnv{stores: make(map[string]*fakeStore)}
	env.srv = server.Server{
		Config: cfg,
		DB:     db,
		Logger: hclog.NewNullLogger(),
		NewStoreClient: func(sc *models.StoreConnection) server.StoreAPI {
			if fs, ok := env.stores[sc.StoreHash]; ok {
				return fs
			}
			fs := &fakeStore{categories: map[int]*bigcommerce.Category{}, nextID: 100}
			env.stores[sc.StoreHash] = fs
			return fs
		},
	}
	env.mux = http.NewServeMux()
	RegisterRoutes(env.mux, env.srv)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)
	return w
}

func (env *testEnv) createStorePair(t *testing.T) (source, target *models.StoreConnection) {
	t.Helper()
	source = &models.StoreConnection{
		Name: "Source", StoreHash: "src", AccessToken: "tok", Type: models.StoreTypeSource,
	}
	require.NoError(t, source.Create(env.srv.DB))
	target = &models.StoreConnection{
		Name: "Target", StoreHash: "tgt", AccessToken: "tok", Type: models.StoreTypeTarget, TreeID: 2,
	}
	require.NoError(t, target.Create(env.srv.DB))
	return source, target
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStoreCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/stores", map[string]any{
		"name":         "Source",
		"store_hash":   "src",
		"access_token": "secret-token",
		"type":         "source",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-token", "token never serialized")

	w = env.do(t, http.MethodGet, "/api/v1/stores", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["count"])

	w = env.do(t, http.MethodPost, "/api/v1/stores", map[string]any{"name": "Broken"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/stores/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/v1/stores/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreTestEndpoint(t *testing.T) {
	env := newTestEnv(t)
	source, _ := env.createStorePair(t)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/stores/%d/test", source.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])

	reloaded := &models.StoreConnection{ID: source.ID}
	require.NoError(t, reloaded.Get(env.srv.DB))
	assert.NotNil(t, reloaded.LastConnectedAt)
}

func TestCompareEndpoint(t *testing.T) {
	env := newTestEnv(t)
	source, target := env.createStorePair(t)

	// Prime the fake stores by touching the factory once per side.
	env.srv.NewStoreClient(source).(*fakeStore).categories = map[int]*bigcommerce.Category{
		1: {ID: 1, Name: "Wine", IsVisible: true},
		2: {ID: 2, ParentID: 1, Name: "Red", IsVisible: true},
	}
	env.srv.NewStoreClient(target).(*fakeStore).categories = map[int]*bigcommerce.Category{
		10: {ID: 10, Name: "Wine", IsVisible: true},
	}

	w := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/categories/compare?source_id=%d&target_id=%d", source.ID, target.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["missing_count"])
	assert.EqualValues(t, 0, summary["deleted_count"])
	assert.EqualValues(t, 1, summary["unchanged_count"])
}

func TestRunMigrationCompleted(t *testing.T) {
	env := newTestEnv(t)
	source, target := env.createStorePair(t)

	env.srv.NewStoreClient(source).(*fakeStore).categories = map[int]*bigcommerce.Category{
		1: {ID: 1, Name: "Wine", IsVisible: true},
		2: {ID: 2, ParentID: 1, Name: "Red", IsVisible: true},
	}

	w := env.do(t, http.MethodPost, "/api/v1/migrations", RunMigrationRequest{
		SourceStoreID: source.ID,
		TargetStoreID: target.ID,
		Operation:     OperationCreate,
		Categories: []bigcommerce.Category{
			{ID: 2, ParentID: 1, Name: "Red"},
			{ID: 1, Name: "Wine"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var logs models.MigrationLogs
	_, err := logs.Find(env.srv.DB, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.MigrationStatusCompleted, logs[0].Status)
	assert.Equal(t, 2, logs[0].CategoriesCount)

	// Parent created before child in the target store.
	tgt := env.stores["tgt"]
	assert.Equal(t, []string{"Wine", "Red"}, tgt.created)

	// Mapping persisted for both categories.
	all, err := models.AllMappings(env.srv.DB, source.ID, target.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRunMigrationAllFailed(t *testing.T) {
	env := newTestEnv(t)
	source, target := env.createStorePair(t)

	env.srv.NewStoreClient(source).(*fakeStore).categories = map[int]*bigcommerce.Category{
		1: {ID: 1, Name: "Wine", IsVisible: true},
	}
	env.srv.NewStoreClient(target).(*fakeStore).failCreate = true

	w := env.do(t, http.MethodPost, "/api/v1/migrations", RunMigrationRequest{
		SourceStoreID: source.ID,
		TargetStoreID: target.ID,
		Operation:     OperationCreate,
		Categories:    []bigcommerce.Category{{ID: 1, Name: "Wine"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var logs models.MigrationLogs
	_, err := logs.Find(env.srv.DB, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.MigrationStatusFailed, logs[0].Status)
	assert.Equal(t, "all operations failed", logs[0].ErrorMessage)
}

func TestRunMigrationPartial(t *testing.T) {
	env := newTestEnv(t)
	source, target := env.createStorePair(t)

	env.srv.NewStoreClient(source).(*fakeStore).categories = map[int]*bigcommerce.Category{
		1: {ID: 1, Name: "Wine", IsVisible: true},
	}

	// One valid category and one with no id: one created, one failed.
	w := env.do(t, http.MethodPost, "/api/v1/migrations", RunMigrationRequest{
		SourceStoreID: source.ID,
		TargetStoreID: target.ID,
		Operation:     OperationCreate,
		Categories: []bigcommerce.Category{
			{ID: 1, Name: "Wine"},
			{ID: 0, Name: "Nameless"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var logs models.MigrationLogs
	_, err := logs.Find(env.srv.DB, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.MigrationStatusPartial, logs[0].Status)
}

func TestRunMigrationRejectsUnknownOperation(t *testing.T) {
	env := newTestEnv(t)
	source, target := env.createStorePair(t)

	w := env.do(t, http.MethodPost, "/api/v1/migrations", RunMigrationRequest{
		SourceStoreID: source.ID,
		TargetStoreID: target.ID,
		Operation:     "obliterate",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMigrationLogEndpoints(t *testing.T) {
	env := newTestEnv(t)
	source, target := env.createStorePair(t)

	log := &models.MigrationLog{
		SourceStoreID: source.ID, TargetStoreID: target.ID, Operation: "create",
	}
	require.NoError(t, log.Create(env.srv.DB))

	w := env.do(t, http.MethodGet, "/api/v1/migrations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["total"])

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/migrations/%d", log.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/migrations/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}
