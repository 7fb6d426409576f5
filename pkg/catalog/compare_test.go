package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeforge/catsync/pkg/bigcommerce"
)

func TestComparePartition(t *testing.T) {
	source := []bigcommerce.Category{
		{ID: 1, ParentID: 0, Name: "Wine", IsVisible: true},
		{ID: 2, ParentID: 1, Name: "Red", IsVisible: true},
		{ID: 3, ParentID: 1, Name: "White", IsVisible: true},
	}
	target := []bigcommerce.Category{
		{ID: 10, ParentID: 0, Name: "Wine", IsVisible: true},
		{ID: 11, ParentID: 10, Name: "Red", IsVisible: true},
		{ID: 12, ParentID: 0, Name: "Beer", IsVisible: true},
	}

	c := Compare(source, target)

	// "Wine -> White" only in source, "Beer" only in target.
	require.Len(t, c.Missing, 1)
	assert.Equal(t, "Wine -> White", c.Missing[0].Path)
	require.Len(t, c.Deleted, 1)
	assert.Equal(t, "Beer", c.Deleted[0].Path)
	assert.Empty(t, c.Updated)
	assert.Len(t, c.Unchanged, 2)

	// Every union path lands in exactly one bucket.
	total := len(c.Missing) + len(c.Deleted) + len(c.Updated) + len(c.Unchanged)
	assert.Equal(t, 4, total)

	assert.Equal(t, 3, c.Summary.TotalSourceCategories)
	assert.Equal(t, 3, c.Summary.TotalTargetCategories)
	assert.Equal(t, 2, c.Summary.ActionsRequired)
}

func TestCompareMatchesByPathNotID(t *testing.T) {
	// Same path, wildly different ids: must match as unchanged.
	source := []bigcommerce.Category{{ID: 7, Name: "Gifts", IsVisible: true}}
	target := []bigcommerce.Category{{ID: 9001, Name: "Gifts", IsVisible: true}}

	c := Compare(source, target)
	assert.Empty(t, c.Missing)
	assert.Empty(t, c.Deleted)
	assert.Len(t, c.Unchanged, 1)
}

func TestCompareSameNameDifferentParents(t *testing.T) {
	// "Red" under Wine and "Red" under Beer are distinct identities.
	source := []bigcommerce.Category{
		{ID: 1, Name: "Wine", IsVisible: true},
		{ID: 2, ParentID: 1, Name: "Red", IsVisible: true},
	}
	target := []bigcommerce.Category{
		{ID: 10, Name: "Beer", IsVisible: true},
		{ID: 11, ParentID: 10, Name: "Red", IsVisible: true},
	}

	c := Compare(source, target)
	require.Len(t, c.Missing, 2)
	require.Len(t, c.Deleted, 2)
	assert.Empty(t, c.Unchanged)
}

func TestDetectChangesTrackedFields(t *testing.T) {
	src := Info{Category: bigcommerce.Category{
		ID: 1, Name: "Red", Description: "Bold reds", PageTitle: "Red Wine",
		IsVisible: true,
	}}
	tgt := Info{Category: bigcommerce.Category{
		ID: 2, Name: "Red", Description: "Old copy", PageTitle: "Red Wine",
		IsVisible: false,
	}}

	changes := DetectChanges(src, tgt)
	fields := make([]string, 0, len(changes))
	for _, ch := range changes {
		fields = append(fields, ch.Field)
	}
	assert.ElementsMatch(t, []string{"description", "is_visible"}, fields)
}

func TestDetectChangesIgnoresStructuralFields(t *testing.T) {
	// parent_id and sort_order differ by construction across stores.
	src := Info{Category: bigcommerce.Category{ID: 1, ParentID: 5, SortOrder: 1, Name: "Red", IsVisible: true}}
	tgt := Info{Category: bigcommerce.Category{ID: 2, ParentID: 77, SortOrder: 9, Name: "Red", IsVisible: true}}

	assert.Empty(t, DetectChanges(src, tgt))
}

func TestDetectChangesTrimsWhitespace(t *testing.T) {
	src := Info{Category: bigcommerce.Category{Name: "Red", Description: "  Bold reds  ", IsVisible: true}}
	tgt := Info{Category: bigcommerce.Category{Name: "Red", Description: "Bold reds", IsVisible: true}}

	assert.Empty(t, DetectChanges(src, tgt))
}

func TestDetectChangesMetaKeywordsOrderIndependent(t *testing.T) {
	src := Info{Category: bigcommerce.Category{Name: "Red", MetaKeywords: []string{"wine", "red"}, IsVisible: true}}
	tgt := Info{Category: bigcommerce.Category{Name: "Red", MetaKeywords: []string{"red", "wine"}, IsVisible: true}}
	assert.Empty(t, DetectChanges(src, tgt))

	tgt.MetaKeywords = []string{"red", "merlot"}
	changes := DetectChanges(src, tgt)
	require.Len(t, changes, 1)
	assert.Equal(t, "meta_keywords", changes[0].Field)
}

func TestCompareDeterministicOrder(t *testing.T) {
	source := []bigcommerce.Category{
		{ID: 1, Name: "Zebra", IsVisible: true},
		{ID: 2, Name: "Apple", IsVisible: true},
		{ID: 3, Name: "Mango", IsVisible: true},
	}

	c := Compare(source, nil)
	require.Len(t, c.Missing, 3)
	assert.Equal(t, "Apple", c.Missing[0].Path)
	assert.Equal(t, "Mango", c.Missing[1].Path)
	assert.Equal(t, "Zebra", c.Missing[2].Path)
}

func TestFilterByStatus(t *testing.T) {
	c := Compare(
		[]bigcommerce.Category{{ID: 1, Name: "Wine", IsVisible: true}},
		[]bigcommerce.Category{{ID: 2, Name: "Beer", IsVisible: true}},
	)

	missing, ok := FilterByStatus(c, "missing").([]Entry)
	require.True(t, ok)
	assert.Len(t, missing, 1)
	assert.Nil(t, FilterByStatus(c, "bogus"))
}

func TestSearch(t *testing.T) {
	c := Compare(
		[]bigcommerce.Category{
			{ID: 1, Name: "Wine", IsVisible: true},
			{ID: 2, ParentID: 1, Name: "Red Wine", IsVisible: true},
		},
		[]bigcommerce.Category{
			{ID: 10, Name: "Wine", IsVisible: true},
			{ID: 11, Name: "Winter Gear", IsVisible: true},
		},
	)

	results := Search(c, "win")
	require.Len(t, results, 3)

	results = Search(c, "RED")
	require.Len(t, results, 1)
	assert.Equal(t, "missing", results[0].Status)
	assert.Equal(t, "Wine -> Red Wine", results[0].Path)
}
