package extract

import (
	"strings"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Accept reports whether a candidate carries enough substance to be stored
// as a recipe: a title plus at least one of ingredients or instructions, or
// both ingredients and instructions without a title.
func Accept(c *recipe.Candidate) bool {
	if c == nil {
		return false
	}
	hasTitle := strings.TrimSpace(c.Title) != ""
	hasIngredients := len(c.Ingredients) > 0
	hasInstructions := len(c.Instructions) > 0
	if hasTitle && (hasIngredients || hasInstructions) {
		return true
	}
	return hasIngredients && hasInstructions
}
