package memory

import (
	"context"
	"sync"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// RecipeStore keeps extracted recipes keyed by id.
type RecipeStore struct {
	mu      sync.RWMutex
	recipes map[string]recipe.Recipe
}

// NewRecipeStore constructs a RecipeStore.
func NewRecipeStore() *RecipeStore {
	return &RecipeStore{recipes: make(map[string]recipe.Recipe)}
}

// Save stores or replaces a recipe.
func (s *RecipeStore) Save(_ context.Context, r recipe.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[r.ID] = r
	return nil
}

// Get fetches a recipe by id.
func (s *RecipeStore) Get(_ context.Context, id string) (recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return recipe.Recipe{}, recipe.ErrRecipeNotFound
	}
	return r, nil
}
