package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Selector tables for the generic pattern strategy. Each field has its own
// priority order and the first selector that yields usable data wins; later
// selectors for that field are not consulted.
var (
	titleSelectors = []string{
		`h1[itemprop="name"]`,
		"h1.recipe-title",
		"h1.entry-title",
		".recipe-header h1",
		`h1[class*="recipe"]`,
		".recipe-title",
		"h1",
	}

	ingredientSelectors = []string{
		"ul.recipe-ingredients li",
		".recipe-ingredients li",
		".ingredients-list li",
		".ingredients li",
		"li.ingredient",
		`ul[class*="ingredient"] li`,
		`div[class*="ingredient"] li`,
	}

	// Selector classes known to render the whole method as one block get
	// their oversized matches routed through the splitter.
	instructionSelectors = []string{
		"ol.recipe-instructions li",
		".recipe-instructions li",
		".instructions-list li",
		".instructions li",
		".directions li",
		".method li",
		`ol[class*="instruction"] li`,
		`div[class*="instruction"] li`,
		`div[class*="method"] p`,
		".recipe-method p",
		".directions p",
		".instructions",
		".directions",
	}

	descriptionSelectors = []attrSelector{
		{`meta[name="description"]`, "content"},
		{`meta[property="og:description"]`, "content"},
		{".recipe-summary", ""},
		{".recipe-description", ""},
		{`div[class*="description"] p`, ""},
	}

	imageSelectors = []attrSelector{
		{`meta[property="og:image"]`, "content"},
		{".recipe-image img", "src"},
		{`img[class*="recipe"]`, "src"},
		{"article img", "src"},
	}

	servingsSelectors = []attrSelector{
		{`[itemprop="recipeYield"]`, "content"},
		{".recipe-yield", ""},
		{".servings", ""},
		{`[class*="servings"]`, ""},
		{`[class*="yield"]`, ""},
	}

	timeSelectors = []attrSelector{
		{`time[itemprop="totalTime"]`, "datetime"},
		{".total-time", ""},
		{".recipe-time", ""},
		{`[class*="total-time"]`, ""},
		{`[class*="cook-time"]`, ""},
	}
)

// attrSelector pairs a CSS selector with the attribute carrying the value.
// An empty attribute means the element text.
type attrSelector struct {
	sel  string
	attr string
}

// SelectorPatterns extracts recipes from pages without structured markup by
// probing common class and id naming conventions, field by field.
type SelectorPatterns struct{}

func (SelectorPatterns) Name() string { return "selector_patterns" }

func (SelectorPatterns) Extract(p *Page) (*recipe.Candidate, error) {
	c := &recipe.Candidate{
		Title:        selectTitle(p.Doc),
		Ingredients:  selectIngredients(p.Doc),
		Instructions: selectInstructions(p.Doc),
	}

	if desc := firstValue(p.Doc, descriptionSelectors); ValidText(desc, ContextDescription) {
		c.Description = desc
	}
	c.Image = firstValue(p.Doc, imageSelectors)
	c.Servings = ParseServings(firstValue(p.Doc, servingsSelectors))
	c.ReadyInMinutes = ParseDuration(firstValue(p.Doc, timeSelectors))

	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil, nil
	}
	return c, nil
}

func selectTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		text := cleanText(doc.Find(sel).First().Text())
		if text == "" || IsNavigation(text) || len([]rune(text)) > 200 {
			continue
		}
		return text
	}
	return ""
}

func selectIngredients(doc *goquery.Document) []recipe.Ingredient {
	for _, sel := range ingredientSelectors {
		var out []recipe.Ingredient
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			line := cleanText(s.Text())
			if !ValidText(line, ContextGeneral) {
				return
			}
			if ing := ParseIngredient(line); ing.Name != "" {
				out = append(out, ing)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func selectInstructions(doc *goquery.Document) []string {
	for _, sel := range instructionSelectors {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if len([]rune(text)) > largeBlockChars {
				out = append(out, SplitInstructionBlock(text)...)
				return
			}
			if ValidText(text, ContextInstruction) {
				out = append(out, text)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstValue(doc *goquery.Document, selectors []attrSelector) string {
	for _, as := range selectors {
		sel := doc.Find(as.sel).First()
		if sel.Length() == 0 {
			continue
		}
		var value string
		if as.attr != "" {
			value, _ = sel.Attr(as.attr)
			value = strings.TrimSpace(value)
		} else {
			value = cleanText(sel.Text())
		}
		if value != "" {
			return value
		}
	}
	return ""
}
