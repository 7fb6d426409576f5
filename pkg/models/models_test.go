package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(ModelsToAutoMigrate()...))
	return db
}

func createStorePair(t *testing.T, db *gorm.DB) (source, target *StoreConnection) {
	t.Helper()
	source = &StoreConnection{
		Name: "Source", StoreHash: "src123", AccessToken: "tok", Type: StoreTypeSource,
	}
	require.NoError(t, source.Create(db))
	target = &StoreConnection{
		Name: "Target", StoreHash: "tgt456", AccessToken: "tok", Type: StoreTypeTarget, TreeID: 2,
	}
	require.NoError(t, target.Create(db))
	return source, target
}

func TestStoreConnectionValidation(t *testing.T) {
	db := testDB(t)

	sc := &StoreConnection{Name: "Broken", StoreHash: "abc", AccessToken: "tok", Type: "sideways"}
	err := sc.Create(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")

	sc.Type = StoreTypeSource
	require.NoError(t, sc.Create(db))
	assert.True(t, sc.IsActive)
}

func TestStoreConnectionMarkConnected(t *testing.T) {
	db := testDB(t)
	source, _ := createStorePair(t, db)

	require.Nil(t, source.LastConnectedAt)
	require.NoError(t, source.MarkConnected(db))

	reloaded := &StoreConnection{ID: source.ID}
	require.NoError(t, reloaded.Get(db))
	require.NotNil(t, reloaded.LastConnectedAt)
	assert.WithinDuration(t, time.Now(), *reloaded.LastConnectedAt, time.Minute)
}

func TestStoreConnectionsFindActiveByType(t *testing.T) {
	db := testDB(t)
	createStorePair(t, db)

	inactive := &StoreConnection{
		Name: "Old", StoreHash: "old", AccessToken: "tok", Type: StoreTypeSource,
	}
	require.NoError(t, inactive.Create(db))
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	var sources StoreConnections
	require.NoError(t, sources.FindActiveByType(db, StoreTypeSource))
	require.Len(t, sources, 1)
	assert.Equal(t, "Source", sources[0].Name)
}

func TestCategoryMappingUpsertIdempotent(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	cm := &CategoryMapping{
		SourceStoreID: source.ID,
		TargetStoreID: target.ID,
		OldCategoryID: 10,
		NewCategoryID: 100,
		CategoryName:  "Wine",
	}
	require.NoError(t, cm.Upsert(db))

	// Re-running the migration re-points the row, never duplicates it.
	again := &CategoryMapping{
		SourceStoreID: source.ID,
		TargetStoreID: target.ID,
		OldCategoryID: 10,
		NewCategoryID: 200,
		CategoryName:  "Wine",
	}
	require.NoError(t, again.Upsert(db))
	assert.Equal(t, cm.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&CategoryMapping{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	newID, ok, err := NewCategoryIDFor(db, source.ID, target.ID, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 200, newID)
}

func TestCategoryMappingScopedByStorePair(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	cm := &CategoryMapping{
		SourceStoreID: source.ID, TargetStoreID: target.ID,
		OldCategoryID: 10, NewCategoryID: 100,
	}
	require.NoError(t, cm.Upsert(db))

	// Same old id under a different pair resolves nothing.
	_, ok, err := NewCategoryIDFor(db, target.ID, source.ID, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllMappings(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	for oldID, newID := range map[int]int{10: 100, 11: 101} {
		cm := &CategoryMapping{
			SourceStoreID: source.ID, TargetStoreID: target.ID,
			OldCategoryID: oldID, NewCategoryID: newID,
		}
		require.NoError(t, cm.Upsert(db))
	}

	all, err := AllMappings(db, source.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{10: 100, 11: 101}, all)
}

func TestMigrationLogLifecycle(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	log := &MigrationLog{
		SourceStoreID:   source.ID,
		TargetStoreID:   target.ID,
		Operation:       "create",
		CategoriesCount: 3,
	}
	require.NoError(t, log.Create(db))
	assert.NotEqual(t, uuid.Nil, log.RunUUID)
	assert.Equal(t, MigrationStatusPending, log.Status)

	require.NoError(t, log.MarkStarted(db))
	assert.Equal(t, MigrationStatusInProgress, log.Status)
	require.NotNil(t, log.StartedAt)

	results := MustJSON(map[string]int{"created": 3, "failed": 0})
	require.NoError(t, log.MarkCompleted(db, results))

	reloaded := &MigrationLog{ID: log.ID}
	require.NoError(t, reloaded.Get(db))
	assert.Equal(t, MigrationStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.CompletedAt)
	require.NotNil(t, reloaded.Duration)
	assert.JSONEq(t, `{"created": 3, "failed": 0}`, reloaded.Results.String())
}

func TestMigrationLogFailedAndPartial(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	failed := &MigrationLog{SourceStoreID: source.ID, TargetStoreID: target.ID, Operation: "create"}
	require.NoError(t, failed.Create(db))
	require.NoError(t, failed.MarkStarted(db))
	require.NoError(t, failed.MarkFailed(db, "all operations failed"))
	assert.Equal(t, MigrationStatusFailed, failed.Status)
	assert.Equal(t, "all operations failed", failed.ErrorMessage)

	partial := &MigrationLog{SourceStoreID: source.ID, TargetStoreID: target.ID, Operation: "all"}
	require.NoError(t, partial.Create(db))
	require.NoError(t, partial.MarkStarted(db))
	require.NoError(t, partial.MarkPartial(db, MustJSON(map[string]int{"created": 1, "failed": 2})))
	assert.Equal(t, MigrationStatusPartial, partial.Status)
}

func TestMigrationLogUpdateProgress(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	log := &MigrationLog{SourceStoreID: source.ID, TargetStoreID: target.ID, Operation: "create"}
	require.NoError(t, log.Create(db))
	require.NoError(t, log.MarkStarted(db))

	require.NoError(t, log.UpdateProgress(db,
		MustJSON(map[string]int{"created": 1}),
		MustJSON([]map[string]any{{"status": "created", "category_name": "Wine"}})))

	reloaded := &MigrationLog{ID: log.ID}
	require.NoError(t, reloaded.Get(db))
	assert.Equal(t, MigrationStatusInProgress, reloaded.Status)
	assert.Contains(t, reloaded.Details.String(), "Wine")
}

func TestMigrationLogsFind(t *testing.T) {
	db := testDB(t)
	source, target := createStorePair(t, db)

	for i := 0; i < 3; i++ {
		log := &MigrationLog{SourceStoreID: source.ID, TargetStoreID: target.ID, Operation: "create"}
		require.NoError(t, log.Create(db))
	}
	done := &MigrationLog{SourceStoreID: source.ID, TargetStoreID: target.ID, Operation: "delete"}
	require.NoError(t, done.Create(db))
	require.NoError(t, done.MarkStarted(db))
	require.NoError(t, done.MarkCompleted(db, nil))

	var logs MigrationLogs
	total, err := logs.Find(db, LogFilter{Status: MigrationStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, logs, 3)

	logs = nil
	total, err = logs.Find(db, LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, logs, 2)
}
