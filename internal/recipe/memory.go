// Package recipe provides recipe source implementations and turns a
// recipe payload into narration segments.
package recipe

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds recipes in memory. It is the offline catalog used
// when no recipe API is configured. Safe for concurrent use.
type MemorySource struct {
	mu         sync.RWMutex
	recipes    map[string]*domain.Recipe
	categories map[string][]string
	log        *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := NewEmptyMemorySource(log)
	src.seed()
	return src
}

// NewEmptyMemorySource creates a recipe source with no recipes.
func NewEmptyMemorySource(log *logger.Logger) *MemorySource {
	return &MemorySource{
		recipes:    make(map[string]*domain.Recipe),
		categories: make(map[string][]string),
		log:        log,
	}
}

// Add stores a recipe and its categories, replacing any recipe with the same ID.
func (s *MemorySource) Add(r *domain.Recipe, categories ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	cp.Categories = nil
	s.recipes[r.ID] = &cp
	s.categories[r.ID] = append([]string(nil), categories...)
}

// List returns summaries of all available recipes.
func (s *MemorySource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.log.Debug("listing all recipes, count=%d", len(s.recipes))

	out := make([]domain.RecipeSummary, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, summarize(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a copy of a recipe by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not found: %s", id)
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// Categories returns the category names attached to a recipe.
func (s *MemorySource) Categories(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.recipes[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]string(nil), s.categories[id]...), nil
}

func summarize(r *domain.Recipe) domain.RecipeSummary {
	return domain.RecipeSummary{ID: r.ID, Name: r.Name, Chef: r.Chef}
}

// seed populates the source with built-in recipes. Ingredients and steps
// are comma-joined, the same shape the recipe API serves.
func (s *MemorySource) seed() {
	created := time.Date(2024, time.March, 2, 18, 30, 0, 0, time.UTC)

	s.Add(&domain.Recipe{
		ID:          "chicken-alfredo",
		Name:        "Chicken Alfredo",
		Chef:        "Marco",
		Family:      domain.DefaultFamily,
		CreatedAt:   created,
		Ingredients: "250 grams spaghetti, 2 chicken breasts, 1 cup creme fraiche, 1 cup grated gruyere, 3 tablespoons margarine, 4 cloves garlic, salt and black pepper",
		Steps:       "Boil the spaghetti in salted water until al dente, " +
			"Season and sear the chicken in olive oil for six minutes a side, " +
			"Slice the chicken and set it aside, " +
			"Melt the margarine and soften the garlic, " +
			"Stir in the creme fraiche and the gruyere until smooth, " +
			"Toss the pasta and chicken through the sauce and serve",
	}, "Pasta", "Dinner")

	s.Add(&domain.Recipe{
		ID:          "vegetable-stir-fry",
		Name:        "Vegetable Stir Fry",
		Chef:        "Mei",
		Family:      domain.DefaultFamily,
		CreatedAt:   created.Add(72 * time.Hour),
		Ingredients: "1 bell pepper, 2 cups broccoli florets, 1 carrot, 1 cup snap peas, 3 cloves garlic, 1 tablespoon grated ginger, 3 tablespoons soy sauce, 1 tablespoon sesame oil",
		Steps:       "Cut all the vegetables into bite sized pieces, " +
			"Heat the sesame oil in a wok until it shimmers, " +
			"Fry the garlic and ginger for thirty seconds, " +
			"Add the carrot and broccoli and cook for three minutes, " +
			"Add the pepper and snap peas and cook for two more minutes, " +
			"Pour in the soy sauce and toss to coat",
	}, "Vegan", "Quick")

	s.Add(&domain.Recipe{
		ID:          "banana-bread",
		Name:        "Banana Bread",
		Chef:        "Nora",
		Family:      "Baking Club",
		CreatedAt:   created.Add(240 * time.Hour),
		Ingredients: "3 ripe bananas, 80 grams melted butter, 150 grams sugar, 1 egg, 1 teaspoon baking soda, 190 grams flour, a pinch of salt",
		Steps:       "Heat the oven to 175 degrees, " +
			"Mash the bananas with the melted butter, " +
			"Mix in the sugar and the egg, " +
			"Sprinkle the baking soda and salt over the mixture, " +
			"Fold in the flour, " +
			"Bake in a loaf tin for one hour",
	}, "Baking", "Dessert")

	s.log.Debug("seeded %d recipes", len(s.recipes))
}
