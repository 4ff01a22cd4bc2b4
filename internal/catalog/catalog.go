// Package catalog loads the GPT catalog served on the protected root.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// GPT is one catalog entry. Optional fields are nil when the source lacks them.
type GPT struct {
	Name        string  `json:"name"`
	Link        *string `json:"link"`
	Description *string `json:"description"`
	Tools       *string `json:"tools"`
	PromptIdeal *string `json:"prompt_ideal"`
}

// Category groups entries under a heading.
type Category struct {
	Category string `json:"category"`
	GPTs     []GPT  `json:"gpts"`
}

// Catalog is an immutable, loaded catalog.
type Catalog struct {
	categories []Category
}

// Load reads the catalog JSON document at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Categories without entries are dropped.
func Parse(data []byte) (*Catalog, error) {
	var raw []Category
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	categories := make([]Category, 0, len(raw))
	for _, c := range raw {
		if len(c.GPTs) == 0 {
			continue
		}
		categories = append(categories, c)
	}
	return &Catalog{categories: categories}, nil
}

// Empty returns a catalog with no categories.
func Empty() *Catalog {
	return &Catalog{categories: []Category{}}
}

// Categories returns the loaded categories.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return []Category{}
	}
	return c.categories
}

// Count returns the number of entries across all categories.
func (c *Catalog) Count() int {
	n := 0
	for _, cat := range c.Categories() {
		n += len(cat.GPTs)
	}
	return n
}
