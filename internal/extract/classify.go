package extract

import (
	"regexp"
	"strings"
)

// TextContext selects which validity rules apply to a piece of scraped text.
type TextContext int

const (
	// ContextGeneral covers titles, ingredient lines and other short fields.
	ContextGeneral TextContext = iota
	// ContextDescription covers summary text, which additionally rejects
	// promotional fragments.
	ContextDescription
	// ContextInstruction covers method steps, which have a minimum length
	// but no maximum.
	ContextInstruction
)

const (
	minInstructionChars = 15
	maxGeneralChars     = 500
	// Period-free text shorter than this is a heading or teaser, not prose.
	minDescriptionChars = 60
)

// navigationPhrases is the curated list of site-chrome wording. Matching is
// case-insensitive on whole words, so "Cook for about 30 minutes" is not
// caught by "about us" and "homemade" is not caught by "home".
var navigationPhrases = []string{
	"log in",
	"sign up",
	"menu",
	"home",
	"about us",
	"contact",
	"search",
	"subscribe",
	"newsletter",
	"my account",
	"settings",
	"help",
	"privacy",
	"terms",
	"cookies",
	"accept all cookies",
	"advertisement",
	"follow us",
	"social media",
}

var navigationRe = phrasePattern(navigationPhrases)

func phrasePattern(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// IsNavigation reports whether text contains site-chrome wording that marks
// it as menu or boilerplate content rather than recipe content.
func IsNavigation(text string) bool {
	return navigationRe.MatchString(text)
}

var (
	styleRecipeRe   = regexp.MustCompile(`(?i)\bstyle\b.*\brecipe\b`)
	cookedInSauceRe = regexp.MustCompile(`(?i)\bcooked in\b.{0,60}\bsauce\b\s*[.!]?\s*$`)
	dashRecipeRe    = regexp.MustCompile(`(?i)[-–]\s*[\w\s']*\brecipe\b\s*$`)
)

// isPromotionalDescription rejects teaser text that restates the dish name
// instead of describing it: short fragments with no sentence structure and
// stock endings like "... - a family recipe".
func isPromotionalDescription(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	if !strings.Contains(t, ".") && len([]rune(t)) < minDescriptionChars {
		return true
	}
	if styleRecipeRe.MatchString(t) && !strings.Contains(t, ".") {
		return true
	}
	if cookedInSauceRe.MatchString(t) {
		return true
	}
	if dashRecipeRe.MatchString(t) {
		return true
	}
	return false
}

// ValidText reports whether text is plausible recipe content for the given
// context. All contexts reject empty and navigation text; instructions
// enforce a minimum length, every other context a maximum.
func ValidText(text string, ctx TextContext) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if IsNavigation(t) {
		return false
	}
	switch ctx {
	case ContextInstruction:
		return len([]rune(t)) >= minInstructionChars
	case ContextDescription:
		if len([]rune(t)) > maxGeneralChars {
			return false
		}
		return !isPromotionalDescription(t)
	default:
		return len([]rune(t)) >= 2 && len([]rune(t)) <= maxGeneralChars
	}
}
