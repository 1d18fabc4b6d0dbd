package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

const (
	maxHeuristicIngredients  = 20
	maxHeuristicInstructions = 15
)

var (
	measurementRe = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:/\s*\d+)?\s*(?:cups?|tbsp|tablespoons?|tsp|teaspoons?|g|grams?|kg|ml|l|oz|ounces?|lbs?|pounds?|cloves?|pinch|slices?|cans?)\b`)
	quantityRe    = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)?(?:\s*/\s*\d+)?|[¼½¾⅓⅔⅛⅜⅝⅞])\s`)
	promoRe       = regexp.MustCompile(`(?i)\b(?:click|subscribe|sign up|follow|advert|cookie|newsletter|comment|share|download|shop|buy)\b`)
)

// Heuristic is the last-resort strategy for pages with no usable markup at
// all. It scores headings for a title, keeps list items that look like
// measured ingredients, and keeps sentences that open with a cooking verb.
// Everything is capped so a noisy page cannot flood the candidate.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Extract(p *Page) (*recipe.Candidate, error) {
	c := &recipe.Candidate{
		Title:        heuristicTitle(p.Doc),
		Ingredients:  heuristicIngredients(p.Doc),
		Instructions: heuristicInstructions(p.Doc),
	}
	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil, nil
	}
	return c, nil
}

// heuristicTitle picks the best-scoring heading. Recipe vocabulary and a
// plausible length outweigh position, but an h1 wins ties.
func heuristicTitle(doc *goquery.Document) string {
	best := ""
	bestScore := 0
	consider := func(text string, positionBonus int) {
		text = cleanText(text)
		if text == "" || IsNavigation(text) {
			return
		}
		n := len([]rune(text))
		if n < 4 || n > 150 {
			return
		}
		score := positionBonus
		lower := strings.ToLower(text)
		if strings.Contains(lower, "recipe") || strings.Contains(lower, "how to make") {
			score += 3
		}
		if n >= 15 && n <= 80 {
			score += 2
		} else if n >= 8 {
			score++
		}
		if score > bestScore {
			best = text
			bestScore = score
		}
	}

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) { consider(s.Text(), 3) })
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) { consider(s.Text(), 1) })
	if title := doc.Find("title").First().Text(); title != "" {
		// Site names ride along after a separator in <title>.
		consider(strings.SplitN(title, "|", 2)[0], 2)
	}
	return best
}

// heuristicIngredients keeps list items that carry a measurement or open
// with a quantity.
func heuristicIngredients(doc *goquery.Document) []recipe.Ingredient {
	var out []recipe.Ingredient
	doc.Find("li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		line := cleanText(sel.Text())
		if !ValidText(line, ContextGeneral) || len([]rune(line)) > 150 {
			return true
		}
		if !measurementRe.MatchString(line) && !quantityRe.MatchString(line) {
			return true
		}
		if ing := ParseIngredient(line); ing.Name != "" {
			out = append(out, ing)
		}
		return len(out) < maxHeuristicIngredients
	})
	return out
}

// heuristicInstructions keeps paragraph and list sentences that start with
// a cooking verb and read like prose rather than promotion.
func heuristicInstructions(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find("p, li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := cleanText(sel.Text())
		if !ValidText(text, ContextInstruction) {
			return true
		}
		n := len([]rune(text))
		if n > largeBlockChars || !startsWithStepVerb(text) || promoRe.MatchString(text) {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}
		out = append(out, text)
		return len(out) < maxHeuristicInstructions
	})
	return out
}
