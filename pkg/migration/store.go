package migration

import (
	"gorm.io/gorm"

	"github.com/storeforge/catsync/pkg/models"
)

// DBMappingStore backs MappingStore with the category_mappings table.
type DBMappingStore struct {
	db *gorm.DB
}

// NewDBMappingStore wraps a database handle as a mapping store.
func NewDBMappingStore(db *gorm.DB) *DBMappingStore {
	return &DBMappingStore{db: db}
}

// NewCategoryID resolves an old category id for a store pair.
func (s *DBMappingStore) NewCategoryID(sourceStoreID, targetStoreID uint, oldCategoryID int) (int, bool, error) {
	return models.NewCategoryIDFor(s.db, sourceStoreID, targetStoreID, oldCategoryID)
}

// Upsert persists an id translation, replacing any row with the same
// (source, target, old id) key.
func (s *DBMappingStore) Upsert(m Mapping) error {
	cm := models.CategoryMapping{
		SourceStoreID: m.SourceStoreID,
		TargetStoreID: m.TargetStoreID,
		OldCategoryID: m.OldCategoryID,
		NewCategoryID: m.NewCategoryID,
		CategoryName:  m.CategoryName,
		CategoryPath:  m.CategoryPath,
		ParentID:      m.ParentID,
	}
	return cm.Upsert(s.db)
}
