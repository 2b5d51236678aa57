package recipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*CachedSource)(nil)

// CachedSource serves recipes from a store and falls back to the
// underlying source on a miss. Categories are kept on the stored recipe.
type CachedSource struct {
	src   domain.RecipeSource
	store domain.RecipeStore
	log   *logger.Logger
}

// NewCachedSource wraps src with store.
func NewCachedSource(src domain.RecipeSource, store domain.RecipeStore, log *logger.Logger) *CachedSource {
	return &CachedSource{src: src, store: store, log: log}
}

// List is not cached.
func (c *CachedSource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	return c.src.List(ctx)
}

// Get returns the stored recipe or fetches and stores it.
func (c *CachedSource) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	r, err := c.store.Load(ctx, id)
	if err == nil {
		c.log.Debug("recipe cache hit: %s", id)
		return r, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading cached recipe: %w", err)
	}

	r, err = c.src.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, r); err != nil {
		c.log.Warn("recipe cache: saving %s: %v", id, err)
	}
	return r, nil
}

// Categories returns the categories stored with the recipe, fetching
// them once if the stored recipe has none yet.
func (c *CachedSource) Categories(ctx context.Context, id string) ([]string, error) {
	r, err := c.store.Load(ctx, id)
	if err == nil && r.Categories != nil {
		return append([]string(nil), r.Categories...), nil
	}

	cats, err := c.src.Categories(ctx, id)
	if err != nil {
		return nil, err
	}
	if r != nil {
		r.Categories = append([]string{}, cats...)
		if err := c.store.Save(ctx, r); err != nil {
			c.log.Warn("recipe cache: saving categories of %s: %v", id, err)
		}
	}
	return cats, nil
}

// Invalidate drops a recipe from the cache so the next Get refetches it.
func (c *CachedSource) Invalidate(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("invalidating %s: %w", id, err)
	}
	c.log.Debug("recipe cache: invalidated %s", id)
	return nil
}
