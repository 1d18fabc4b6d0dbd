// Package detector classifies fetch responses: whether a page needs headless
// rendering to produce content, and whether a 2xx body is really a bot wall
// or error interstitial rather than a recipe page.
package detector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Heuristic implements a handful of rule-based render promotions.
type Heuristic struct {
	BodyLengthThreshold int
	// ContentSelectors, when set, must all be absent for the selector check
	// to trigger a render. Empty means the check is skipped.
	ContentSelectors []string
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("__next_data__"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-app"),
	[]byte("window.__apollo_state__"),
}

// NeedsRender decides whether a rendered fetch is required to see content.
func (h *Heuristic) NeedsRender(resp recipe.FetchResponse) bool {
	if resp.StatusCode != 200 {
		return false
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	lower := bytes.ToLower(body)
	for _, marker := range spaMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return h.missingContent(body)
}

func (h *Heuristic) missingContent(body []byte) bool {
	if len(h.ContentSelectors) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	for _, sel := range h.ContentSelectors {
		if doc.Find(sel).Length() > 0 {
			return false
		}
	}
	return true
}

var failureIndicators = [][]byte{
	[]byte("access denied"),
	[]byte("forbidden"),
	[]byte("captcha"),
	[]byte("are you a human"),
	[]byte("are you a robot"),
	[]byte("robot check"),
	[]byte("unusual traffic"),
	[]byte("attention required"),
	[]byte("enable javascript"),
	[]byte("javascript is disabled"),
	[]byte("page not found"),
	[]byte("error 404"),
	[]byte("temporarily unavailable"),
}

// Interstitial reports whether a 2xx body is a block page or error page in
// disguise. Both conditions must hold: a failure indicator is present and
// the page carries no recipe vocabulary at all. A genuine recipe page that
// happens to mention "404" in a comment stays accepted.
func Interstitial(body []byte) bool {
	lower := bytes.ToLower(body)
	found := false
	for _, indicator := range failureIndicators {
		if bytes.Contains(lower, indicator) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return !bytes.Contains(lower, []byte("recipe")) &&
		!bytes.Contains(lower, []byte("ingredient"))
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Treat the rest of the document as part of the malformed script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			// Script tag never closes; count the rest.
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	if scriptCoverage == 0 {
		return false
	}
	return scriptCoverage*100/total >= 25
}
