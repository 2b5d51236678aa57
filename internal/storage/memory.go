// Package storage provides recipe cache store implementations.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory recipe store. It keeps copies, so callers
// may mutate what they save or load. Safe for concurrent access.
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[string]domain.Recipe
	log     *logger.Logger
}

// NewMemoryStore creates an empty in-memory recipe store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		recipes: make(map[string]domain.Recipe),
		log:     log,
	}
}

// Save stores a recipe. Overwrites if it already exists.
func (s *MemoryStore) Save(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *recipe
	cp.Categories = cloneStrings(recipe.Categories)
	s.log.Debug("saving recipe %s (%q, categories=%d)", recipe.ID, recipe.Name, len(recipe.Categories))
	s.recipes[recipe.ID] = cp
	return nil
}

// Load retrieves a recipe by ID.
func (s *MemoryStore) Load(ctx context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not cached: %s", id)
		return nil, domain.ErrNotFound
	}
	r.Categories = cloneStrings(r.Categories)
	return &r, nil
}

// Delete removes a recipe by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.recipes, id)
	s.log.Debug("deleted recipe %s", id)
	return nil
}

// Len returns the number of stored recipes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes)
}

// cloneStrings copies a slice, keeping nil as nil.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
