// Package catalog holds the pure category-tree logic: building
// hierarchical paths and diffing two stores' category sets by path.
// Numeric category ids are store-local and meaningless across systems,
// so the root-to-node name path is the cross-store identity key.
package catalog

import (
	"sort"
	"strings"

	"github.com/storeforge/catsync/pkg/bigcommerce"
)

// PathSeparator joins ancestor names into a path key,
// e.g. "Wine -> Red -> Cabernet Sauvignon".
const PathSeparator = " -> "

// BuildPath walks parent links upward from the given category id and
// returns the ancestor-to-self name sequence joined into a path string.
// The walk stops at a root (parent_id 0), at a parent that cannot be
// found, or when an id repeats. A repeated id means the data contains a
// cycle; the partial path accumulated so far is returned rather than an
// error, since a degraded path is still a usable identity for display
// and matching.
func BuildPath(categories []bigcommerce.Category, id int) string {
	var names []string
	visited := make(map[int]bool)

	currentID := id
	for currentID != 0 {
		if visited[currentID] {
			break
		}
		visited[currentID] = true

		found := false
		for i := range categories {
			if categories[i].ID == currentID {
				names = append([]string{categories[i].Name}, names...)
				currentID = categories[i].ParentID
				found = true
				break
			}
		}
		if !found {
			break
		}
	}

	return strings.Join(names, PathSeparator)
}

// Entry is one category indexed by its path.
type Entry struct {
	ID       int                  `json:"id"`
	Name     string               `json:"name"`
	ParentID int                  `json:"parent_id"`
	Path     string               `json:"path"`
	Category bigcommerce.Category `json:"data"`
}

// BuildPathMap indexes a store's categories by path. Categories whose
// id could not be resolved from either wire shape are skipped entirely;
// they cannot be matched or mutated.
func BuildPathMap(categories []bigcommerce.Category) map[string]Entry {
	pathMap := make(map[string]Entry, len(categories))
	for i := range categories {
		cat := categories[i]
		if cat.ID == 0 {
			continue
		}
		path := BuildPath(categories, cat.ID)
		pathMap[path] = Entry{
			ID:       cat.ID,
			Name:     cat.Name,
			ParentID: cat.ParentID,
			Path:     path,
			Category: cat,
		}
	}
	return pathMap
}

// SortByParentID orders categories by parent_id, ascending by default.
// Ascending order processes parents before children within the same
// batch; descending order is used for deletions, children first.
func SortByParentID(categories []bigcommerce.Category, descending bool) []bigcommerce.Category {
	sorted := make([]bigcommerce.Category, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].ParentID > sorted[j].ParentID
		}
		return sorted[i].ParentID < sorted[j].ParentID
	})
	return sorted
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
