package models

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// CategoryMapping records that a source-store category was recreated in
// a target store under a new id. One row exists per
// (source_store_id, target_store_id, old_category_id) triple; re-running
// a migration re-points the row at the latest new id instead of
// duplicating it. Rows are never deleted automatically - they are the
// permanent cross-store lineage used to resolve parent references on
// later runs.
type CategoryMapping struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SourceStoreID uint `gorm:"not null;uniqueIndex:idx_category_mappings_key" json:"source_store_id"`
	TargetStoreID uint `gorm:"not null;uniqueIndex:idx_category_mappings_key" json:"target_store_id"`

	// OldCategoryID is the category's id in the source store.
	OldCategoryID int `gorm:"not null;uniqueIndex:idx_category_mappings_key" json:"old_category_id"`

	// NewCategoryID is the id the category received in the target store.
	NewCategoryID int `gorm:"not null" json:"new_category_id"`

	CategoryName string `gorm:"type:varchar(255)" json:"category_name"`
	CategoryPath string `gorm:"type:text" json:"category_path"`

	// ParentID is the parent id the category was created with in the
	// target store (already mapped when the parent migrated earlier).
	ParentID int `gorm:"default:0" json:"parent_id"`

	// Metadata stores additional JSON data for extensibility.
	Metadata JSON `gorm:"type:text" json:"metadata,omitempty"`

	SourceStore StoreConnection `gorm:"foreignKey:SourceStoreID" json:"-"`
	TargetStore StoreConnection `gorm:"foreignKey:TargetStoreID" json:"-"`
}

// TableName specifies the table name for GORM.
func (CategoryMapping) TableName() string {
	return "category_mappings"
}

// Validate checks the mapping key and target id.
func (cm *CategoryMapping) Validate() error {
	return validation.ValidateStruct(cm,
		validation.Field(&cm.SourceStoreID, validation.Required),
		validation.Field(&cm.TargetStoreID, validation.Required),
		validation.Field(&cm.OldCategoryID, validation.Required),
		validation.Field(&cm.NewCategoryID, validation.Required),
	)
}

// FindByOldCategoryID loads the mapping for one old category id within
// a store pair. Returns gorm.ErrRecordNotFound when absent.
func (cm *CategoryMapping) FindByOldCategoryID(db *gorm.DB, sourceStoreID, targetStoreID uint, oldCategoryID int) error {
	return db.Where(
		"source_store_id = ? AND target_store_id = ? AND old_category_id = ?",
		sourceStoreID, targetStoreID, oldCategoryID,
	).First(cm).Error
}

// NewCategoryIDFor resolves an old category id to the id it received in
// the target store. The second return is false when no mapping exists.
func NewCategoryIDFor(db *gorm.DB, sourceStoreID, targetStoreID uint, oldCategoryID int) (int, bool, error) {
	var cm CategoryMapping
	err := cm.FindByOldCategoryID(db, sourceStoreID, targetStoreID, oldCategoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cm.NewCategoryID, true, nil
}

// Upsert creates or updates the mapping row for its key triple. The
// validation runs first so a half-built mapping never reaches the table.
func (cm *CategoryMapping) Upsert(db *gorm.DB) error {
	if err := cm.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	existing := &CategoryMapping{}
	err := existing.FindByOldCategoryID(db, cm.SourceStoreID, cm.TargetStoreID, cm.OldCategoryID)
	if err == nil {
		cm.ID = existing.ID
		cm.CreatedAt = existing.CreatedAt
		return db.Save(cm).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(cm).Error
	}

	return fmt.Errorf("error checking for existing mapping: %w", err)
}

// AllMappings returns old id -> new id for a store pair.
func AllMappings(db *gorm.DB, sourceStoreID, targetStoreID uint) (map[int]int, error) {
	var mappings []CategoryMapping
	err := db.Where("source_store_id = ? AND target_store_id = ?", sourceStoreID, targetStoreID).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}

	result := make(map[int]int, len(mappings))
	for _, m := range mappings {
		result[m.OldCategoryID] = m.NewCategoryID
	}
	return result, nil
}
