// Package migration executes ordered, rate-limited category
// reconciliation batches against a target store: creations in
// parent-first order, field updates, and deletions in child-first order.
// One category's failure never aborts its batch; every item produces a
// detail row and the batch reports aggregate counters.
package migration

import (
	"context"

	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/catalog"
)

// Detail statuses for processed categories.
const (
	DetailStatusCreated = "created"
	DetailStatusUpdated = "updated"
	DetailStatusDeleted = "deleted"
	DetailStatusSkipped = "skipped"
	DetailStatusFailed  = "failed"
)

// Detail is the per-category outcome row.
type Detail struct {
	Status        string   `json:"status"`
	CategoryID    int      `json:"category_id,omitempty"`
	OldCategoryID int      `json:"old_category_id,omitempty"`
	NewCategoryID int      `json:"new_category_id,omitempty"`
	CategoryName  string   `json:"category_name"`
	ParentID      int      `json:"parent_id,omitempty"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// BatchResult aggregates one batch's counters and ordered details.
type BatchResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Details []Detail `json:"details"`
}

// NewBatchResult returns an empty result with a non-nil details slice so
// it serializes as [] rather than null.
func NewBatchResult() *BatchResult {
	return &BatchResult{Details: []Detail{}}
}

// record appends a detail and bumps the matching counter.
func (r *BatchResult) record(d Detail) {
	switch d.Status {
	case DetailStatusCreated:
		r.Created++
	case DetailStatusUpdated:
		r.Updated++
	case DetailStatusDeleted:
		r.Deleted++
	case DetailStatusSkipped:
		r.Skipped++
	case DetailStatusFailed:
		r.Failed++
	}
	r.Details = append(r.Details, d)
}

// Successes counts applied mutations.
func (r *BatchResult) Successes() int {
	return r.Created + r.Updated + r.Deleted
}

// Merge folds another result into this one, concatenating details.
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	r.Created += other.Created
	r.Updated += other.Updated
	r.Deleted += other.Deleted
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Details = append(r.Details, other.Details...)
}

// Progress is a running snapshot delivered after each processed item.
type Progress struct {
	Current         int          `json:"current"`
	Total           int          `json:"total"`
	Percentage      float64      `json:"percentage"`
	CurrentCategory string       `json:"current_category"`
	Results         *BatchResult `json:"results"`
}

// ProgressFunc receives progress snapshots. May be nil.
type ProgressFunc func(Progress)

// Recorder persists running batch state mid-flight, typically into the
// migration log row owned by the caller. The engine holds no shared
// mutable log state of its own.
type Recorder interface {
	Record(result *BatchResult)
}

// Update describes one target category to bring in line with its source
// counterpart: only the source side of each change is applied.
type Update struct {
	TargetID int                   `json:"target_id"`
	Name     string                `json:"name"`
	Changes  []catalog.FieldChange `json:"changes"`
}

// Selection groups the three comparison subsets for a combined run.
type Selection struct {
	Missing []bigcommerce.Category `json:"missing"`
	Updated []Update               `json:"updated"`
	Deleted []bigcommerce.Category `json:"deleted"`
}

// StoreClient is the remote-store surface the engine consumes. It is
// satisfied by *bigcommerce.Client; tests substitute a mock.
type StoreClient interface {
	CategoryByID(ctx context.Context, id int) (*bigcommerce.Category, error)
	CreateCategory(ctx context.Context, payload *bigcommerce.CreateCategoryPayload) (int, error)
	UpdateCategory(ctx context.Context, id int, fields map[string]any) error
	DeleteCategory(ctx context.Context, id, treeID int) error
}

// Mapping is one old-id to new-id translation row.
type Mapping struct {
	SourceStoreID uint
	TargetStoreID uint
	OldCategoryID int
	NewCategoryID int
	CategoryName  string
	CategoryPath  string
	ParentID      int
}

// MappingStore persists id translations across runs for a store pair.
type MappingStore interface {
	// NewCategoryID resolves an old id; the bool reports whether a
	// mapping exists.
	NewCategoryID(sourceStoreID, targetStoreID uint, oldCategoryID int) (int, bool, error)

	// Upsert writes the mapping for its key triple, replacing any
	// previous new id.
	Upsert(m Mapping) error
}
