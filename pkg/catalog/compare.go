package catalog

import (
	"sort"
	"strings"

	"github.com/storeforge/catsync/pkg/bigcommerce"
)

// Info is a category together with its computed path, the unit the
// comparison and migration layers work with.
type Info struct {
	bigcommerce.Category
	Path string `json:"path"`
}

// FieldChange records one differing tracked field between a source and
// target category that share a path.
type FieldChange struct {
	Field       string `json:"field"`
	SourceValue any    `json:"source_value"`
	TargetValue any    `json:"target_value"`
}

// UpdatedEntry is a path present in both stores with at least one
// tracked-field difference.
type UpdatedEntry struct {
	Source  Info          `json:"source"`
	Target  Info          `json:"target"`
	Changes []FieldChange `json:"changes"`
	Path    string        `json:"path"`
}

// Summary aggregates comparison counts.
type Summary struct {
	TotalSourceCategories int `json:"total_source_categories"`
	TotalTargetCategories int `json:"total_target_categories"`
	MissingCount          int `json:"missing_count"`
	DeletedCount          int `json:"deleted_count"`
	UpdatedCount          int `json:"updated_count"`
	UnchangedCount        int `json:"unchanged_count"`
	ActionsRequired       int `json:"actions_required"`
}

// Comparison classifies every path in the union of two stores' category
// sets into exactly one of four buckets.
type Comparison struct {
	Missing   []Entry        `json:"missing"`
	Deleted   []Entry        `json:"deleted"`
	Updated   []UpdatedEntry `json:"updated"`
	Unchanged []Info         `json:"unchanged"`
	Summary   Summary        `json:"summary"`
}

// trackedFields are the content fields considered for update detection.
// Structural fields (parent_id, sort_order) are excluded: they are
// store-local and differ between stores by construction. meta_keywords
// is handled separately as an order-independent list.
var trackedFields = []string{
	"name",
	"description",
	"custom_url",
	"page_title",
	"meta_description",
	"search_keywords",
	"is_visible",
	"image_url",
	"default_product_sort",
	"layout_file",
}

// ExtractInfo pairs a category with its path within its store's full
// category list.
func ExtractInfo(cat bigcommerce.Category, all []bigcommerce.Category) Info {
	return Info{Category: cat, Path: BuildPath(all, cat.ID)}
}

// Compare diffs two stores' category sets by path. Buckets:
//
//   - missing:   path in source, absent from target (needs creation)
//   - deleted:   path in target, absent from source (removed at source)
//   - updated:   path in both with tracked-field differences
//   - unchanged: path in both, no tracked differences
//
// Every distinct path in the union lands in exactly one bucket. Bucket
// contents are ordered by path for deterministic output.
func Compare(source, target []bigcommerce.Category) *Comparison {
	sourceMap := BuildPathMap(source)
	targetMap := BuildPathMap(target)

	result := &Comparison{
		Missing:   []Entry{},
		Deleted:   []Entry{},
		Updated:   []UpdatedEntry{},
		Unchanged: []Info{},
	}

	for _, path := range sortedKeys(sourceMap) {
		srcEntry := sourceMap[path]
		tgtEntry, ok := targetMap[path]
		if !ok {
			result.Missing = append(result.Missing, srcEntry)
			continue
		}

		srcInfo := ExtractInfo(srcEntry.Category, source)
		tgtInfo := ExtractInfo(tgtEntry.Category, target)

		changes := DetectChanges(srcInfo, tgtInfo)
		if len(changes) > 0 {
			result.Updated = append(result.Updated, UpdatedEntry{
				Source:  srcInfo,
				Target:  tgtInfo,
				Changes: changes,
				Path:    path,
			})
		} else {
			result.Unchanged = append(result.Unchanged, tgtInfo)
		}
	}

	for _, path := range sortedKeys(targetMap) {
		if _, ok := sourceMap[path]; !ok {
			result.Deleted = append(result.Deleted, targetMap[path])
		}
	}

	result.Summary = Summary{
		TotalSourceCategories: len(source),
		TotalTargetCategories: len(target),
		MissingCount:          len(result.Missing),
		DeletedCount:          len(result.Deleted),
		UpdatedCount:          len(result.Updated),
		UnchangedCount:        len(result.Unchanged),
	}
	result.Summary.ActionsRequired = result.Summary.MissingCount +
		result.Summary.UpdatedCount + result.Summary.DeletedCount

	return result
}

// DetectChanges runs the field-level diff over the tracked fields.
// Strings are trimmed before comparison; meta_keywords is compared as a
// sorted list so ordering differences don't register as changes.
func DetectChanges(source, target Info) []FieldChange {
	var changes []FieldChange

	for _, field := range trackedFields {
		srcVal := fieldValue(&source.Category, field)
		tgtVal := fieldValue(&target.Category, field)
		if !valuesEqual(srcVal, tgtVal) {
			changes = append(changes, FieldChange{
				Field:       field,
				SourceValue: srcVal,
				TargetValue: tgtVal,
			})
		}
	}

	if !keywordsEqual(source.MetaKeywords, target.MetaKeywords) {
		changes = append(changes, FieldChange{
			Field:       "meta_keywords",
			SourceValue: source.MetaKeywords,
			TargetValue: target.MetaKeywords,
		})
	}

	return changes
}

func fieldValue(c *bigcommerce.Category, field string) any {
	switch field {
	case "name":
		return c.Name
	case "description":
		return c.Description
	case "custom_url":
		return c.CustomURL
	case "page_title":
		return c.PageTitle
	case "meta_description":
		return c.MetaDescription
	case "search_keywords":
		return c.SearchKeywords
	case "is_visible":
		return c.IsVisible
	case "image_url":
		return c.ImageURL
	case "default_product_sort":
		return c.DefaultProductSort
	case "layout_file":
		return c.LayoutFile
	default:
		return nil
	}
}

func valuesEqual(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.TrimSpace(as) == strings.TrimSpace(bs)
	}
	return a == b
}

func keywordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	copy(as, a)
	copy(bs, b)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// FilterByStatus returns one bucket of a comparison by name. An unknown
// status yields nil.
func FilterByStatus(c *Comparison, status string) any {
	switch status {
	case "missing":
		return c.Missing
	case "deleted":
		return c.Deleted
	case "updated":
		return c.Updated
	case "unchanged":
		return c.Unchanged
	default:
		return nil
	}
}

// SearchResult is one comparison item matched by name search.
type SearchResult struct {
	Status string `json:"status"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
}

// Search finds comparison items whose category name contains the query,
// case-insensitively, across all four buckets.
func Search(c *Comparison, query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	var results []SearchResult

	match := func(status string, id int, name, path string) {
		if strings.Contains(strings.ToLower(name), query) {
			results = append(results, SearchResult{Status: status, ID: id, Name: name, Path: path})
		}
	}

	for _, e := range c.Missing {
		match("missing", e.ID, e.Name, e.Path)
	}
	for _, e := range c.Deleted {
		match("deleted", e.ID, e.Name, e.Path)
	}
	for _, u := range c.Updated {
		match("updated", u.Source.ID, u.Source.Name, u.Path)
	}
	for _, i := range c.Unchanged {
		match("unchanged", i.ID, i.Name, i.Path)
	}

	return results
}
