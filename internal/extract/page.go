package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Page is a fetched document parsed and ready for extraction.
type Page struct {
	// URL is the final URL after redirects.
	URL string
	// Domain is the registrable host with any leading "www." removed, used
	// to key site-specific scrapers.
	Domain string
	// Rendered records whether the body came from the headless tier.
	Rendered bool

	Doc *goquery.Document
}

// NewPage parses body into a queryable document.
func NewPage(url string, body []byte, rendered bool) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{
		URL:      url,
		Domain:   recipe.Domain(url),
		Rendered: rendered,
		Doc:      doc,
	}, nil
}
