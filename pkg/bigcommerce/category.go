package bigcommerce

import (
	"encoding/json"
	"strings"
)

// Category is the canonical category record used by the rest of the
// system. The BigCommerce catalog API returns two shapes for the same
// logical entity: /v3/catalog/categories uses `id` and a nested
// `custom_url` object, while /v3/catalog/trees/categories uses
// `category_id` and a flat `url.path`. UnmarshalJSON folds both into
// this one struct so callers never see the difference.
type Category struct {
	ID                 int      `json:"id"`
	ParentID           int      `json:"parent_id"`
	TreeID             int      `json:"tree_id,omitempty"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	SortOrder          int      `json:"sort_order"`
	PageTitle          string   `json:"page_title"`
	MetaKeywords       []string `json:"meta_keywords"`
	MetaDescription    string   `json:"meta_description"`
	SearchKeywords     string   `json:"search_keywords"`
	CustomURL          string   `json:"custom_url"`
	ImageURL           string   `json:"image_url"`
	IsVisible          bool     `json:"is_visible"`
	DefaultProductSort string   `json:"default_product_sort"`
	LayoutFile         string   `json:"layout_file"`
}

// categoryWire matches the union of both API response shapes.
type categoryWire struct {
	ID         int             `json:"id"`
	CategoryID int             `json:"category_id"`
	ParentID   int             `json:"parent_id"`
	TreeID     int             `json:"tree_id"`
	Name       string          `json:"name"`
	Description string         `json:"description"`
	SortOrder  int             `json:"sort_order"`
	PageTitle  string          `json:"page_title"`
	MetaKeywords    json.RawMessage `json:"meta_keywords"`
	MetaDescription string          `json:"meta_description"`
	SearchKeywords  string          `json:"search_keywords"`
	CustomURL  *CustomURL `json:"custom_url"`
	URL        *struct {
		Path string `json:"path"`
	} `json:"url"`
	ImageURL           string `json:"image_url"`
	IsVisible          *bool  `json:"is_visible"`
	DefaultProductSort string `json:"default_product_sort"`
	LayoutFile         string `json:"layout_file"`
}

// UnmarshalJSON decodes either API shape into the canonical form.
func (c *Category) UnmarshalJSON(data []byte) error {
	var w categoryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	c.ID = w.ID
	if c.ID == 0 {
		c.ID = w.CategoryID
	}
	c.ParentID = w.ParentID
	c.TreeID = w.TreeID
	c.Name = w.Name
	c.Description = w.Description
	c.SortOrder = w.SortOrder
	c.PageTitle = w.PageTitle
	c.MetaDescription = w.MetaDescription
	c.SearchKeywords = w.SearchKeywords
	c.ImageURL = w.ImageURL
	c.DefaultProductSort = w.DefaultProductSort
	if c.DefaultProductSort == "" {
		c.DefaultProductSort = "use_store_settings"
	}
	c.LayoutFile = w.LayoutFile

	// Visibility defaults to true when the field is absent.
	c.IsVisible = true
	if w.IsVisible != nil {
		c.IsVisible = *w.IsVisible
	}

	// Nested custom_url (flat shape) wins over url.path (tree shape).
	switch {
	case w.CustomURL != nil:
		c.CustomURL = w.CustomURL.URL
	case w.URL != nil:
		c.CustomURL = w.URL.Path
	}

	c.MetaKeywords = decodeMetaKeywords(w.MetaKeywords)
	return nil
}

// decodeMetaKeywords accepts either a JSON string list or a single
// comma-separated string, both of which the API has been seen to return.
func decodeMetaKeywords(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

// CustomURL is the nested URL object used by category create and update
// payloads.
type CustomURL struct {
	URL          string `json:"url"`
	IsCustomized bool   `json:"is_customized"`
}

// CreateCategoryPayload is the request body for creating a category in a
// target store's tree.
type CreateCategoryPayload struct {
	ParentID           int        `json:"parent_id"`
	TreeID             int        `json:"tree_id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	SortOrder          int        `json:"sort_order"`
	PageTitle          string     `json:"page_title"`
	MetaKeywords       []string   `json:"meta_keywords"`
	MetaDescription    string     `json:"meta_description"`
	SearchKeywords     string     `json:"search_keywords"`
	IsVisible          bool       `json:"is_visible"`
	DefaultProductSort string     `json:"default_product_sort"`
	LayoutFile         string     `json:"layout_file,omitempty"`
	CustomURL          *CustomURL `json:"custom_url,omitempty"`
	ImageURL           string     `json:"image_url,omitempty"`
}

// NewCreatePayload assembles a creation payload from an authoritative
// source category. Optional fields (custom_url, image_url, layout_file)
// are included only when present and non-empty, since the API rejects
// empty URL objects.
func NewCreatePayload(c *Category, parentID, treeID int) *CreateCategoryPayload {
	p := &CreateCategoryPayload{
		ParentID:           parentID,
		TreeID:             treeID,
		Name:               c.Name,
		Description:        c.Description,
		SortOrder:          c.SortOrder,
		PageTitle:          c.PageTitle,
		MetaKeywords:       c.MetaKeywords,
		MetaDescription:    c.MetaDescription,
		SearchKeywords:     c.SearchKeywords,
		IsVisible:          c.IsVisible,
		DefaultProductSort: c.DefaultProductSort,
	}
	if p.MetaKeywords == nil {
		p.MetaKeywords = []string{}
	}
	if p.DefaultProductSort == "" {
		p.DefaultProductSort = "use_store_settings"
	}
	if c.CustomURL != "" {
		p.CustomURL = &CustomURL{URL: c.CustomURL, IsCustomized: true}
	}
	if c.ImageURL != "" {
		p.ImageURL = c.ImageURL
	}
	if c.LayoutFile != "" {
		p.LayoutFile = c.LayoutFile
	}
	return p
}

// Tree is a category tree in a store's catalog.
type Tree struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StoreInfo is the store summary returned by /v2/store.
type StoreInfo struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}
