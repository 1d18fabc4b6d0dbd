package extract

import (
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// SiteScraper extracts a candidate from one specific site's layout.
type SiteScraper func(p *Page) (*recipe.Candidate, error)

// Registry maps domains (hostname with any "www." stripped) to scrapers
// for sites whose markup defeats the generic strategies.
type Registry struct {
	mu       sync.RWMutex
	scrapers map[string]SiteScraper
}

func NewRegistry() *Registry {
	return &Registry{scrapers: make(map[string]SiteScraper)}
}

func (r *Registry) Register(domain string, fn SiteScraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[domain] = fn
}

func (r *Registry) Lookup(domain string) (SiteScraper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.scrapers[domain]
	return fn, ok
}

// DefaultRegistry ships the curated site scrapers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("bbcgoodfood.com", scrapeBBCGoodFood)
	r.Register("allrecipes.com", scrapeAllrecipes)
	return r
}

// Sites is the chain strategy that delegates to the registered scraper for
// the page's domain, if any.
type Sites struct {
	registry *Registry
}

func NewSites(registry *Registry) Sites {
	if registry == nil {
		registry = NewRegistry()
	}
	return Sites{registry: registry}
}

func (Sites) Name() string { return "site_specific" }

func (s Sites) Extract(p *Page) (*recipe.Candidate, error) {
	fn, ok := s.registry.Lookup(p.Domain)
	if !ok {
		return nil, nil
	}
	return fn(p)
}

func scrapeBBCGoodFood(p *Page) (*recipe.Candidate, error) {
	c := &recipe.Candidate{
		Title: cleanText(p.Doc.Find("h1.heading-1, h1.post-header__title").First().Text()),
		Image: attrOrEmpty(p.Doc.Find(".post-header__image img, .image__img").First(), "src"),
	}
	p.Doc.Find(".recipe__ingredients li, section.recipe__ingredients li").Each(func(_ int, sel *goquery.Selection) {
		line := cleanText(sel.Text())
		if !ValidText(line, ContextGeneral) {
			return
		}
		if ing := ParseIngredient(line); ing.Name != "" {
			c.Ingredients = append(c.Ingredients, ing)
		}
	})
	p.Doc.Find(".recipe__method-steps li, section.recipe__method-steps li").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		if ValidText(text, ContextInstruction) {
			c.Instructions = append(c.Instructions, text)
		}
	})
	if desc := cleanText(p.Doc.Find(".post-header__description").First().Text()); ValidText(desc, ContextDescription) {
		c.Description = desc
	}
	c.ReadyInMinutes = ParseDuration(cleanText(p.Doc.Find(".post-header__cook-and-prep-time time").First().Text()))
	c.Servings = ParseServings(cleanText(p.Doc.Find(".post-header__servings").First().Text()))

	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil, nil
	}
	return c, nil
}

func scrapeAllrecipes(p *Page) (*recipe.Candidate, error) {
	c := &recipe.Candidate{
		Title: cleanText(p.Doc.Find("h1.article-heading, h1#article-heading_1-0").First().Text()),
		Image: attrOrEmpty(p.Doc.Find(".primary-image img, .article-content img").First(), "src"),
	}
	p.Doc.Find(".mm-recipes-structured-ingredients__list-item, ul.ingredients-section li").Each(func(_ int, sel *goquery.Selection) {
		line := cleanText(sel.Text())
		if !ValidText(line, ContextGeneral) {
			return
		}
		if ing := ParseIngredient(line); ing.Name != "" {
			c.Ingredients = append(c.Ingredients, ing)
		}
	})
	p.Doc.Find(".mm-recipes-steps li p, .instructions-section .paragraph p").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		if ValidText(text, ContextInstruction) {
			c.Instructions = append(c.Instructions, text)
		}
	})
	c.Servings = ParseServings(cleanText(p.Doc.Find(".mm-recipes-details__value").First().Text()))

	if c.Title == "" && len(c.Ingredients) == 0 && len(c.Instructions) == 0 {
		return nil, nil
	}
	return c, nil
}
