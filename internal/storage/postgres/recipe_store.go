package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// RecipeStore persists extracted recipes. Ingredient and instruction lists
// are stored as JSONB, the scalar fields as columns.
type RecipeStore struct {
	pool DB
}

// NewRecipeStore constructs a RecipeStore over a shared pool.
func NewRecipeStore(pool DB) (*RecipeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RecipeStore{pool: pool}, nil
}

// Save upserts a recipe by id, so re-extracting a url replaces its recipe.
func (s *RecipeStore) Save(ctx context.Context, r recipe.Recipe) error {
	if r.ID == "" {
		return fmt.Errorf("recipe id is required")
	}
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}
	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return fmt.Errorf("marshal instructions: %w", err)
	}
	cuisines, err := json.Marshal(emptyIfNil(r.Cuisines))
	if err != nil {
		return fmt.Errorf("marshal cuisines: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(r.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO recipes (
	id,
	title,
	image,
	summary,
	source_url,
	source_name,
	ready_in_minutes,
	servings,
	ingredients,
	instructions,
	cuisines,
	tags,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    image = EXCLUDED.image,
    summary = EXCLUDED.summary,
    source_url = EXCLUDED.source_url,
    source_name = EXCLUDED.source_name,
    ready_in_minutes = EXCLUDED.ready_in_minutes,
    servings = EXCLUDED.servings,
    ingredients = EXCLUDED.ingredients,
    instructions = EXCLUDED.instructions,
    cuisines = EXCLUDED.cuisines,
    tags = EXCLUDED.tags`,
		r.ID,
		r.Title,
		r.Image,
		r.Summary,
		r.SourceURL,
		r.SourceName,
		r.ReadyInMinutes,
		r.Servings,
		ingredients,
		instructions,
		cuisines,
		tags,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}
	return nil
}

// Get fetches a recipe by id.
func (s *RecipeStore) Get(ctx context.Context, id string) (recipe.Recipe, error) {
	var (
		r            recipe.Recipe
		ingredients  []byte
		instructions []byte
		cuisines     []byte
		tags         []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, title, image, summary, source_url, source_name,
       ready_in_minutes, servings, ingredients, instructions, cuisines, tags, created_at
FROM recipes WHERE id = $1`, id).Scan(
		&r.ID,
		&r.Title,
		&r.Image,
		&r.Summary,
		&r.SourceURL,
		&r.SourceName,
		&r.ReadyInMinutes,
		&r.Servings,
		&ingredients,
		&instructions,
		&cuisines,
		&tags,
		&r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return recipe.Recipe{}, recipe.ErrRecipeNotFound
	}
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}

	if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
		return recipe.Recipe{}, fmt.Errorf("unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(instructions, &r.Instructions); err != nil {
		return recipe.Recipe{}, fmt.Errorf("unmarshal instructions: %w", err)
	}
	if err := json.Unmarshal(cuisines, &r.Cuisines); err != nil {
		return recipe.Recipe{}, fmt.Errorf("unmarshal cuisines: %w", err)
	}
	if err := json.Unmarshal(tags, &r.Tags); err != nil {
		return recipe.Recipe{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	return r, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
