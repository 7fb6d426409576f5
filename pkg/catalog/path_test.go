package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeforge/catsync/pkg/bigcommerce"
)

func wineCategories() []bigcommerce.Category {
	return []bigcommerce.Category{
		{ID: 1, ParentID: 0, Name: "Wine"},
		{ID: 2, ParentID: 1, Name: "Red"},
		{ID: 3, ParentID: 2, Name: "Cabernet Sauvignon"},
		{ID: 4, ParentID: 1, Name: "White"},
	}
}

func TestBuildPath(t *testing.T) {
	cats := wineCategories()

	assert.Equal(t, "Wine", BuildPath(cats, 1))
	assert.Equal(t, "Wine -> Red", BuildPath(cats, 2))
	assert.Equal(t, "Wine -> Red -> Cabernet Sauvignon", BuildPath(cats, 3))
	assert.Equal(t, "Wine -> White", BuildPath(cats, 4))
}

func TestBuildPathUnknownID(t *testing.T) {
	assert.Equal(t, "", BuildPath(wineCategories(), 99))
}

func TestBuildPathMissingParent(t *testing.T) {
	cats := []bigcommerce.Category{
		{ID: 5, ParentID: 42, Name: "Orphan"},
	}
	// The walk stops at the unresolvable parent and keeps the partial path.
	assert.Equal(t, "Orphan", BuildPath(cats, 5))
}

func TestBuildPathCycleTerminates(t *testing.T) {
	cats := []bigcommerce.Category{
		{ID: 1, ParentID: 2, Name: "A"},
		{ID: 2, ParentID: 1, Name: "B"},
	}

	path := BuildPath(cats, 1)
	assert.Equal(t, "B -> A", path)
}

func TestBuildPathSelfParent(t *testing.T) {
	cats := []bigcommerce.Category{
		{ID: 7, ParentID: 7, Name: "Loop"},
	}
	assert.Equal(t, "Loop", BuildPath(cats, 7))
}

func TestBuildPathMap(t *testing.T) {
	cats := wineCategories()
	m := BuildPathMap(cats)

	require.Len(t, m, 4)
	assert.Equal(t, 3, m["Wine -> Red -> Cabernet Sauvignon"].ID)
	assert.Equal(t, 2, m["Wine -> Red"].ParentID)
}

func TestBuildPathMapSkipsZeroIDs(t *testing.T) {
	cats := []bigcommerce.Category{
		{ID: 1, Name: "Wine"},
		{ID: 0, Name: "Broken"},
	}
	m := BuildPathMap(cats)
	require.Len(t, m, 1)
	assert.Contains(t, m, "Wine")
}

func TestSortByParentID(t *testing.T) {
	cats := []bigcommerce.Category{
		{ID: 3, ParentID: 2, Name: "Cabernet Sauvignon"},
		{ID: 1, ParentID: 0, Name: "Wine"},
		{ID: 2, ParentID: 1, Name: "Red"},
	}

	asc := SortByParentID(cats, false)
	assert.Equal(t, []int{1, 2, 3}, []int{asc[0].ID, asc[1].ID, asc[2].ID})

	desc := SortByParentID(cats, true)
	assert.Equal(t, []int{3, 2, 1}, []int{desc[0].ID, desc[1].ID, desc[2].ID})

	// Input order is preserved.
	assert.Equal(t, 3, cats[0].ID)
}
