package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Migration log statuses. A log is mutable only while pending or
// in_progress; completed, failed and partial are terminal.
const (
	MigrationStatusPending    = "pending"
	MigrationStatusInProgress = "in_progress"
	MigrationStatusCompleted  = "completed"
	MigrationStatusFailed     = "failed"
	MigrationStatusPartial    = "partial"
)

// MigrationLog is the audit record for one migration invocation: status
// transitions, timing, aggregate counters and the full per-category
// detail list.
type MigrationLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RunUUID identifies the run across systems and log lines.
	RunUUID uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"run_uuid"`

	SourceStoreID uint `gorm:"not null;index" json:"source_store_id"`
	TargetStoreID uint `gorm:"not null;index" json:"target_store_id"`

	// Operation is the requested batch kind: create, update, delete, all.
	Operation string `gorm:"type:varchar(10)" json:"operation"`

	// CategoriesCount is the number of categories submitted for the run.
	CategoriesCount int `gorm:"default:0" json:"categories_count"`

	// Status tracks the run lifecycle.
	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Duration is seconds from start to terminal state.
	Duration *int `json:"duration,omitempty"`

	// Results holds the aggregate counters as JSON.
	Results JSON `gorm:"type:text" json:"results,omitempty"`

	// Details holds the per-category detail list as JSON.
	Details JSON `gorm:"type:text" json:"details,omitempty"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	SourceStore StoreConnection `gorm:"foreignKey:SourceStoreID" json:"-"`
	TargetStore StoreConnection `gorm:"foreignKey:TargetStoreID" json:"-"`
}

// TableName specifies the table name for GORM.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// BeforeCreate hook to generate the run UUID if not set.
func (ml *MigrationLog) BeforeCreate(tx *gorm.DB) error {
	if ml.RunUUID == uuid.Nil {
		ml.RunUUID = uuid.New()
	}
	if ml.Status == "" {
		ml.Status = MigrationStatusPending
	}
	return nil
}

// Get retrieves a migration log by ID.
func (ml *MigrationLog) Get(db *gorm.DB) error {
	return db.First(ml, "id = ?", ml.ID).Error
}

// Create creates a new migration log.
func (ml *MigrationLog) Create(db *gorm.DB) error {
	return db.Create(ml).Error
}

// MarkStarted transitions the log to in_progress and stamps started_at.
func (ml *MigrationLog) MarkStarted(db *gorm.DB) error {
	now := time.Now()
	ml.Status = MigrationStatusInProgress
	ml.StartedAt = &now
	return db.Model(ml).Updates(map[string]interface{}{
		"status":     MigrationStatusInProgress,
		"started_at": now,
	}).Error
}

// MarkCompleted records a fully successful run.
func (ml *MigrationLog) MarkCompleted(db *gorm.DB, results JSON) error {
	return ml.finish(db, MigrationStatusCompleted, results, "")
}

// MarkPartial records a run with both successes and failures.
func (ml *MigrationLog) MarkPartial(db *gorm.DB, results JSON) error {
	return ml.finish(db, MigrationStatusPartial, results, "")
}

// MarkFailed records a run with no successes, or an orchestration error.
func (ml *MigrationLog) MarkFailed(db *gorm.DB, errorMessage string) error {
	return ml.finish(db, MigrationStatusFailed, ml.Results, errorMessage)
}

func (ml *MigrationLog) finish(db *gorm.DB, status string, results JSON, errorMessage string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": now,
	}
	if ml.StartedAt != nil {
		duration := int(now.Sub(*ml.StartedAt).Seconds())
		ml.Duration = &duration
		updates["duration"] = duration
	}
	if len(results) > 0 {
		updates["results"] = results
		ml.Results = results
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
		ml.ErrorMessage = errorMessage
	}
	ml.Status = status
	ml.CompletedAt = &now
	return db.Model(ml).Updates(updates).Error
}

// UpdateProgress persists the running counters and detail list while a
// batch is in flight.
func (ml *MigrationLog) UpdateProgress(db *gorm.DB, results, details JSON) error {
	ml.Results = results
	ml.Details = details
	return db.Model(ml).Updates(map[string]interface{}{
		"results": results,
		"details": details,
	}).Error
}

// MigrationLogs is a slice of migration logs.
type MigrationLogs []MigrationLog

// LogFilter narrows migration log queries.
type LogFilter struct {
	Status        string
	SourceStoreID uint
	TargetStoreID uint
	Limit         int
	Offset        int
}

// Find retrieves logs matching the filter, newest first.
func (mls *MigrationLogs) Find(db *gorm.DB, f LogFilter) (int64, error) {
	query := db.Model(&MigrationLog{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.SourceStoreID != 0 {
		query = query.Where("source_store_id = ?", f.SourceStoreID)
	}
	if f.TargetStoreID != 0 {
		query = query.Where("target_store_id = ?", f.TargetStoreID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}

	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	return total, query.Order("created_at DESC").Find(mls).Error
}
