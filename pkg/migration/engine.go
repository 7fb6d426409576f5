package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/storeforge/catsync/pkg/bigcommerce"
	"github.com/storeforge/catsync/pkg/catalog"
)

// defaultPacing is the delay enforced between item operations so batch
// runs stay inside BigCommerce request quotas.
const defaultPacing = 500 * time.Millisecond

// Fields cleared to an empty string when the source value is null.
// Numeric and boolean fields keep their zero semantics and are exempt.
var nullExemptFields = map[string]bool{
	"parent_id":  true,
	"sort_order": true,
	"is_visible": true,
}

// Engine runs migration batches between a source and a target store.
type Engine struct {
	source   StoreClient
	target   StoreClient
	mappings MappingStore
	logger   hclog.Logger

	pacing   time.Duration
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithPacing overrides the delay between item operations. Tests use a
// zero duration to run batches without sleeping.
func WithPacing(d time.Duration) Option {
	return func(e *Engine) {
		e.pacing = d
	}
}

// WithRecorder installs a recorder that receives the running result
// after every processed item.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New builds an engine for one source/target store pair.
func New(source, target StoreClient, mappings MappingStore, logger hclog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		source:   source,
		target:   target,
		mappings: mappings,
		logger:   logger.Named("engine"),
		pacing:   defaultPacing,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Migrate creates the given source categories in the target store's
// tree, parents before children. Each created category's id translation
// is persisted so later items and later runs can resolve parent
// references. The context is checked between items; on cancellation the
// accumulated result is returned together with the context error.
func (e *Engine) Migrate(
	ctx context.Context,
	categories []bigcommerce.Category,
	sourceStoreID, targetStoreID uint,
	treeID int,
	progress ProgressFunc,
) (*BatchResult, error) {
	result := NewBatchResult()
	sorted := catalog.SortByParentID(categories, false)

	for i, cat := range sorted {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.record(e.migrateOne(ctx, cat, sourceStoreID, targetStoreID, treeID))
		e.report(progress, i+1, len(sorted), cat.Name, result)

		if err := e.pace(ctx, i, len(sorted)); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (e *Engine) migrateOne(
	ctx context.Context,
	cat bigcommerce.Category,
	sourceStoreID, targetStoreID uint,
	treeID int,
) Detail {
	oldID := cat.ID
	if oldID == 0 {
		return Detail{
			Status:       DetailStatusFailed,
			CategoryName: cat.Name,
			Error:        "category id not found in request data",
		}
	}

	// Refetch the full record so stale or partial request data never
	// reaches the target store.
	full, err := e.source.CategoryByID(ctx, oldID)
	if err != nil {
		return Detail{
			Status:        DetailStatusFailed,
			OldCategoryID: oldID,
			CategoryName:  cat.Name,
			Error:         fmt.Sprintf("failed to fetch category from source: %v", err),
		}
	}
	if full == nil {
		return Detail{
			Status:        DetailStatusFailed,
			OldCategoryID: oldID,
			CategoryName:  cat.Name,
			Error:         "category not found in source store",
		}
	}

	parentID := full.ParentID
	if parentID > 0 {
		mapped, ok, err := e.mappings.NewCategoryID(sourceStoreID, targetStoreID, parentID)
		switch {
		case err != nil:
			e.logger.Warn("parent mapping lookup failed, keeping source parent id",
				"old_category_id", oldID, "parent_id", parentID, "error", err)
		case ok:
			parentID = mapped
		default:
			e.logger.Warn("no mapping for parent, creating under source parent id",
				"old_category_id", oldID, "parent_id", parentID)
		}
	}

	payload := bigcommerce.NewCreatePayload(full, parentID, treeID)
	newID, err := e.target.CreateCategory(ctx, payload)
	if err != nil {
		return Detail{
			Status:        DetailStatusFailed,
			OldCategoryID: oldID,
			CategoryName:  full.Name,
			Error:         err.Error(),
		}
	}

	err = e.mappings.Upsert(Mapping{
		SourceStoreID: sourceStoreID,
		TargetStoreID: targetStoreID,
		OldCategoryID: oldID,
		NewCategoryID: newID,
		CategoryName:  full.Name,
		CategoryPath:  catalog.BuildPath([]bigcommerce.Category{*full}, oldID),
		ParentID:      parentID,
	})
	if err != nil {
		// The category exists in the target but children cannot resolve
		// it as a parent, so surface the item as failed.
		return Detail{
			Status:        DetailStatusFailed,
			OldCategoryID: oldID,
			NewCategoryID: newID,
			CategoryName:  full.Name,
			Error:         fmt.Sprintf("created but mapping persistence failed: %v", err),
		}
	}

	e.logger.Debug("category created",
		"old_category_id", oldID, "new_category_id", newID, "name", full.Name)

	return Detail{
		Status:        DetailStatusCreated,
		OldCategoryID: oldID,
		NewCategoryID: newID,
		CategoryName:  full.Name,
		ParentID:      parentID,
	}
}

// UpdateCategories applies field changes to existing target categories.
// Only the source side of each change is written; null source values
// become empty strings except for numeric and visibility fields.
func (e *Engine) UpdateCategories(
	ctx context.Context,
	updates []Update,
	progress ProgressFunc,
) (*BatchResult, error) {
	result := NewBatchResult()

	for i, u := range updates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.record(e.updateOne(ctx, u))
		e.report(progress, i+1, len(updates), u.Name, result)

		if err := e.pace(ctx, i, len(updates)); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (e *Engine) updateOne(ctx context.Context, u Update) Detail {
	if u.TargetID == 0 {
		return Detail{
			Status:       DetailStatusFailed,
			CategoryName: u.Name,
			Error:        "target category id not found in request data",
		}
	}

	fields := buildUpdateFields(u.Changes)
	if len(fields) == 0 {
		return Detail{
			Status:       DetailStatusSkipped,
			CategoryID:   u.TargetID,
			CategoryName: u.Name,
			Reason:       "no applicable field changes",
		}
	}

	if err := e.target.UpdateCategory(ctx, u.TargetID, fields); err != nil {
		return Detail{
			Status:       DetailStatusFailed,
			CategoryID:   u.TargetID,
			CategoryName: u.Name,
			Error:        err.Error(),
		}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	e.logger.Debug("category updated", "category_id", u.TargetID, "fields", names)

	return Detail{
		Status:        DetailStatusUpdated,
		CategoryID:    u.TargetID,
		CategoryName:  u.Name,
		UpdatedFields: names,
	}
}

// buildUpdateFields converts detected changes into an update request
// body. The custom_url field is re-wrapped into the nested object the
// API expects on write.
func buildUpdateFields(changes []catalog.FieldChange) map[string]any {
	fields := make(map[string]any, len(changes))
	for _, ch := range changes {
		value := ch.SourceValue
		if value == nil {
			if nullExemptFields[ch.Field] {
				continue
			}
			value = ""
		}
		if ch.Field == "custom_url" {
			url, _ := value.(string)
			if url == "" {
				continue
			}
			fields["custom_url"] = &bigcommerce.CustomURL{URL: url, IsCustomized: true}
			continue
		}
		fields[ch.Field] = value
	}
	return fields
}

// DeleteCategories removes the given categories from the target store's
// tree, children before parents so the API never rejects a delete for
// having live descendants.
func (e *Engine) DeleteCategories(
	ctx context.Context,
	categories []bigcommerce.Category,
	treeID int,
	progress ProgressFunc,
) (*BatchResult, error) {
	result := NewBatchResult()
	sorted := catalog.SortByParentID(categories, true)

	for i, cat := range sorted {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.record(e.deleteOne(ctx, cat, treeID))
		e.report(progress, i+1, len(sorted), cat.Name, result)

		if err := e.pace(ctx, i, len(sorted)); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (e *Engine) deleteOne(ctx context.Context, cat bigcommerce.Category, treeID int) Detail {
	if cat.ID == 0 {
		return Detail{
			Status:       DetailStatusFailed,
			CategoryName: cat.Name,
			Error:        "category id not found in request data",
		}
	}

	if err := e.target.DeleteCategory(ctx, cat.ID, treeID); err != nil {
		return Detail{
			Status:       DetailStatusFailed,
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Error:        err.Error(),
		}
	}

	e.logger.Debug("category deleted", "category_id", cat.ID, "name", cat.Name)

	return Detail{
		Status:       DetailStatusDeleted,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
	}
}

// RunAll executes a full reconciliation: create the missing categories,
// update the changed ones, then delete the extras. Results are merged
// into one batch. A cancellation stops at the current item and the
// merged result so far is returned.
func (e *Engine) RunAll(
	ctx context.Context,
	sel Selection,
	sourceStoreID, targetStoreID uint,
	treeID int,
	progress ProgressFunc,
) (*BatchResult, error) {
	combined := NewBatchResult()

	created, err := e.Migrate(ctx, sel.Missing, sourceStoreID, targetStoreID, treeID, progress)
	combined.Merge(created)
	if err != nil {
		return combined, err
	}

	updated, err := e.UpdateCategories(ctx, sel.Updated, progress)
	combined.Merge(updated)
	if err != nil {
		return combined, err
	}

	deleted, err := e.DeleteCategories(ctx, sel.Deleted, treeID, progress)
	combined.Merge(deleted)
	return combined, err
}

// report delivers a progress snapshot and records the running result.
func (e *Engine) report(progress ProgressFunc, current, total int, name string, result *BatchResult) {
	if progress != nil {
		p := Progress{
			Current:         current,
			Total:           total,
			CurrentCategory: name,
			Results:         result,
		}
		if total > 0 {
			p.Percentage = float64(current) / float64(total) * 100
		}
		progress(p)
	}
	if e.recorder != nil {
		e.recorder.Record(result)
	}
}

// pace sleeps between items, never after the last one. Returns the
// context error if cancellation lands during the sleep.
func (e *Engine) pace(ctx context.Context, index, total int) error {
	if e.pacing <= 0 || index >= total-1 {
		return nil
	}
	timer := time.NewTimer(e.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
