// Package domain defines the core types and interfaces for the recipe narrator.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Recipe is the payload served by the recipe provider. Ingredients and
// Steps arrive as comma-joined strings and are split when narration
// segments are built.
type Recipe struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Ingredients string    `json:"ingredients"`
	Chef        string    `json:"chef"`
	Family      string    `json:"family"`
	CreatedAt   time.Time `json:"created_at"`
	Photo       string    `json:"photo"`
	Steps       string    `json:"steps"`
	Categories  []string  `json:"-"`
}

// UnmarshalJSON accepts the id as a JSON string or number, since
// providers commonly serve a numeric primary key.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type plain Recipe
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		r.ID = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &r.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("recipe id: %w", err)
		}
		r.ID = n.String()
	}
	return nil
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID   string
	Name string
	Chef string
}

// Category is one entry of the categories-by-recipe listing.
type Category struct {
	Name string `json:"category_name"`
}

// DefaultFamily is the placeholder family the provider reports when a
// recipe is not attached to one.
const DefaultFamily = "defaultFamily"
