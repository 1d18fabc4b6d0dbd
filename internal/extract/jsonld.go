package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// StructuredData extracts schema.org/Recipe JSON-LD. It walks every
// ld+json block on the page, including @graph containers, and tolerates
// the malformed JSON real sites ship: a block that fails to decode is
// skipped, not fatal.
type StructuredData struct{}

func (StructuredData) Name() string { return "structured_data" }

func (StructuredData) Extract(p *Page) (*recipe.Candidate, error) {
	var (
		cand     *recipe.Candidate
		firstErr error
	)
	p.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decode ld+json: %w", err)
			}
			return true
		}
		node := findRecipeNode(data)
		if node == nil {
			return true
		}
		cand = decodeRecipeNode(node)
		return cand == nil
	})
	if cand != nil {
		return cand, nil
	}
	// Only report decode trouble when no block yielded a recipe.
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, nil
}

// findRecipeNode walks arbitrarily nested JSON-LD looking for the first
// object typed as a Recipe. Publishers wrap recipes in top-level arrays,
// @graph containers, and mainEntity envelopes.
func findRecipeNode(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if isRecipeType(t["@type"]) {
			return t
		}
		if node := findRecipeNode(t["@graph"]); node != nil {
			return node
		}
		return findRecipeNode(t["mainEntity"])
	case []any:
		for _, item := range t {
			if node := findRecipeNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

// isRecipeType handles @type given as a string or an array of strings.
func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Recipe")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Recipe") {
				return true
			}
		}
	}
	return false
}

func decodeRecipeNode(node map[string]any) *recipe.Candidate {
	c := &recipe.Candidate{
		Title:       cleanRichText(stringValue(node["name"])),
		Description: cleanRichText(stringValue(node["description"])),
		Image:       ImageURL(node["image"]),
		Servings:    ParseServings(node["recipeYield"]),
		Cuisines:    stringList(node["recipeCuisine"]),
		Tags:        keywordList(node["keywords"]),
	}

	c.ReadyInMinutes = ParseDuration(node["totalTime"])
	if c.ReadyInMinutes == 0 {
		c.ReadyInMinutes = ParseDuration(node["prepTime"]) + ParseDuration(node["cookTime"])
	}

	lines := stringList(node["recipeIngredient"])
	if len(lines) == 0 {
		// Pre-2015 schema.org drafts used the plural property name.
		lines = stringList(node["ingredients"])
	}
	for _, line := range lines {
		if ing := ParseIngredient(line); ing.Name != "" {
			c.Ingredients = append(c.Ingredients, ing)
		}
	}

	c.Instructions = decodeInstructions(node["recipeInstructions"])

	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil
	}
	return c
}

// decodeInstructions flattens the recipeInstructions shapes seen in the
// wild: a single string, an array of strings, HowToStep objects, and
// HowToSection objects whose itemListElement nests more steps.
func decodeInstructions(v any) []string {
	var out []string
	appendText := func(s string) {
		s = cleanRichText(s)
		if s != "" {
			out = append(out, s)
		}
	}

	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if len([]rune(t)) > largeBlockChars {
				out = append(out, SplitInstructionBlock(t)...)
				return
			}
			for _, part := range strings.Split(t, "\n") {
				appendText(part)
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if strings.EqualFold(stringValue(t["@type"]), "HowToSection") {
				walk(t["itemListElement"])
				return
			}
			if text := stringValue(t["text"]); text != "" {
				appendText(text)
				return
			}
			appendText(stringValue(t["name"]))
		}
	}
	walk(v)
	return out
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	case []any:
		for _, item := range t {
			if s := stringValue(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		s := cleanRichText(t)
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		var out []string
		for _, item := range t {
			if s := cleanRichText(stringValue(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// keywordList accepts either a comma-separated string or an array.
func keywordList(v any) []string {
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			part = cleanText(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return stringList(v)
}
