package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Microdata extracts recipes marked up with HTML microdata (itemscope and
// itemprop attributes) and falls back to the classic hRecipe microformat
// classes still found on older blogs.
type Microdata struct{}

func (Microdata) Name() string { return "microdata" }

func (Microdata) Extract(p *Page) (*recipe.Candidate, error) {
	scope := p.Doc.Find(`[itemscope][itemtype*="Recipe"]`).First()
	if scope.Length() == 0 {
		return hRecipe(p)
	}

	c := &recipe.Candidate{
		Title: cleanText(scope.Find(`[itemprop="name"]`).First().Text()),
		Image: attrOrEmpty(scope.Find(`[itemprop="image"]`).First(), "src", "content", "href"),
	}

	scope.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`).Each(func(_ int, sel *goquery.Selection) {
		line := cleanText(sel.Text())
		if !ValidText(line, ContextGeneral) {
			return
		}
		if ing := ParseIngredient(line); ing.Name != "" {
			c.Ingredients = append(c.Ingredients, ing)
		}
	})

	scope.Find(`[itemprop="recipeInstructions"]`).Each(func(_ int, sel *goquery.Selection) {
		c.Instructions = append(c.Instructions, instructionTexts(sel)...)
	})

	if desc := valueOrText(scope.Find(`[itemprop="description"]`).First()); ValidText(desc, ContextDescription) {
		c.Description = desc
	}
	c.ReadyInMinutes = ParseDuration(valueOrText(scope.Find(`[itemprop="totalTime"]`).First()))
	if c.ReadyInMinutes == 0 {
		c.ReadyInMinutes = ParseDuration(valueOrText(scope.Find(`[itemprop="prepTime"]`).First())) +
			ParseDuration(valueOrText(scope.Find(`[itemprop="cookTime"]`).First()))
	}
	c.Servings = ParseServings(valueOrText(scope.Find(`[itemprop="recipeYield"]`).First()))

	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil, nil
	}
	return c, nil
}

// instructionTexts pulls step texts from an instruction container. List
// items are taken one step each; a bare container with one large text blob
// goes through the block splitter.
func instructionTexts(sel *goquery.Selection) []string {
	var out []string
	items := sel.Find("li")
	if items.Length() > 0 {
		items.Each(func(_ int, li *goquery.Selection) {
			text := cleanText(li.Text())
			if ValidText(text, ContextInstruction) {
				out = append(out, text)
			}
		})
		return out
	}
	text := cleanText(sel.Text())
	if len([]rune(text)) > largeBlockChars {
		return SplitInstructionBlock(text)
	}
	if ValidText(text, ContextInstruction) {
		out = append(out, text)
	}
	return out
}

// hRecipe covers the microformat vocabulary: .hrecipe scope with .fn,
// .ingredient and .instructions classes.
func hRecipe(p *Page) (*recipe.Candidate, error) {
	scope := p.Doc.Find(".hrecipe").First()
	if scope.Length() == 0 {
		return nil, nil
	}

	c := &recipe.Candidate{
		Title: cleanText(scope.Find(".fn").First().Text()),
		Image: attrOrEmpty(scope.Find(".photo").First(), "src"),
	}
	scope.Find(".ingredient").Each(func(_ int, sel *goquery.Selection) {
		line := cleanText(sel.Text())
		if !ValidText(line, ContextGeneral) {
			return
		}
		if ing := ParseIngredient(line); ing.Name != "" {
			c.Ingredients = append(c.Ingredients, ing)
		}
	})
	scope.Find(".instructions").Each(func(_ int, sel *goquery.Selection) {
		c.Instructions = append(c.Instructions, instructionTexts(sel)...)
	})
	if summary := cleanText(scope.Find(".summary").First().Text()); ValidText(summary, ContextDescription) {
		c.Description = summary
	}
	c.ReadyInMinutes = ParseDuration(cleanText(scope.Find(".duration").First().Text()))
	c.Servings = ParseServings(cleanText(scope.Find(".yield").First().Text()))

	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil, nil
	}
	return c, nil
}

// valueOrText prefers the machine-readable attribute forms microdata
// allows (datetime on <time>, content on <meta>) over the rendered text.
func valueOrText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"datetime", "content"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return cleanText(sel.Text())
}

func attrOrEmpty(sel *goquery.Selection, attrs ...string) string {
	if sel.Length() == 0 {
		return ""
	}
	for _, attr := range attrs {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
