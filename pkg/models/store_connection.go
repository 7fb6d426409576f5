package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Store connection types.
const (
	StoreTypeSource = "source"
	StoreTypeTarget = "target"
)

// StoreConnection holds the credentials and scope for one BigCommerce
// store. The access token is write-only at the API surface: it is never
// serialized in responses.
type StoreConnection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Name is a user-facing label for the connection.
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	// StoreHash identifies the store at api.bigcommerce.com.
	StoreHash string `gorm:"type:varchar(64);not null;index" json:"store_hash"`

	// AccessToken authenticates API calls. Hidden from JSON output.
	AccessToken string `gorm:"type:varchar(255);not null" json:"-"`

	// Type is either "source" or "target".
	Type string `gorm:"type:varchar(10);not null;index" json:"type"`

	// TreeID scopes target-store mutations to one category tree.
	TreeID int `gorm:"default:0" json:"tree_id"`

	// TreeName is the display name of the scoped tree.
	TreeName string `gorm:"type:varchar(255)" json:"tree_name,omitempty"`

	// IsActive marks connections usable for comparison and migration.
	IsActive bool `gorm:"default:true" json:"is_active"`

	// LastConnectedAt is when the credentials last passed a test call.
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`

	// Metadata stores additional JSON data for extensibility.
	Metadata JSON `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName specifies the table name for GORM.
func (StoreConnection) TableName() string {
	return "store_connections"
}

// Validate checks required fields and the type enum.
func (sc *StoreConnection) Validate() error {
	return validation.ValidateStruct(sc,
		validation.Field(&sc.Name, validation.Required),
		validation.Field(&sc.StoreHash, validation.Required),
		validation.Field(&sc.AccessToken, validation.Required),
		validation.Field(&sc.Type, validation.Required,
			validation.In(StoreTypeSource, StoreTypeTarget)),
	)
}

// Get retrieves a store connection by ID.
func (sc *StoreConnection) Get(db *gorm.DB) error {
	return db.First(sc, "id = ?", sc.ID).Error
}

// Create creates a new store connection after validation.
func (sc *StoreConnection) Create(db *gorm.DB) error {
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return db.Create(sc).Error
}

// Update updates an existing store connection.
func (sc *StoreConnection) Update(db *gorm.DB) error {
	return db.Save(sc).Error
}

// MarkConnected records a successful credential test.
func (sc *StoreConnection) MarkConnected(db *gorm.DB) error {
	now := time.Now()
	sc.LastConnectedAt = &now
	return db.Model(sc).Update("last_connected_at", now).Error
}

// StoreConnections is a slice of store connections.
type StoreConnections []StoreConnection

// FindAll retrieves all store connections.
func (scs *StoreConnections) FindAll(db *gorm.DB) error {
	return db.Order("id").Find(scs).Error
}

// FindActiveByType retrieves active connections of one type.
func (scs *StoreConnections) FindActiveByType(db *gorm.DB, storeType string) error {
	return db.Where("type = ? AND is_active = ?", storeType, true).
		Order("id").Find(scs).Error
}
