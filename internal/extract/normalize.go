package extract

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

var (
	fractionRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	decimalRe  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

	isoDurationRe = regexp.MustCompile(`(?i)^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	hoursRe       = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h\b)`)
	minutesRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?|m\b)`)
	bareNumberRe  = regexp.MustCompile(`^\d+$`)
	firstIntRe    = regexp.MustCompile(`\d+`)

	leadingStepRe = regexp.MustCompile(`(?i)^(?:step\s*)?\d{1,2}\s*[.):]\s*`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
)

// vulgarFractions maps single-codepoint fractions that appear in
// scraped ingredient lines.
var vulgarFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3.0, '⅔': 2.0 / 3.0,
	'⅕': 0.2, '⅖': 0.4, '⅗': 0.6, '⅘': 0.8,
	'⅙': 1.0 / 6.0, '⅚': 5.0 / 6.0,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

// knownUnits holds measurement tokens recognized directly after an amount.
// Matching is case-insensitive against the token with any trailing dot
// removed; the original casing is discarded.
var knownUnits = map[string]struct{}{
	"cup": {}, "cups": {},
	"tablespoon": {}, "tablespoons": {}, "tbsp": {}, "tbs": {},
	"teaspoon": {}, "teaspoons": {}, "tsp": {},
	"gram": {}, "grams": {}, "g": {},
	"kilogram": {}, "kilograms": {}, "kg": {},
	"milliliter": {}, "milliliters": {}, "millilitre": {}, "millilitres": {}, "ml": {},
	"liter": {}, "liters": {}, "litre": {}, "litres": {}, "l": {},
	"ounce": {}, "ounces": {}, "oz": {},
	"pound": {}, "pounds": {}, "lb": {}, "lbs": {},
	"pinch": {}, "dash": {},
	"clove": {}, "cloves": {},
	"slice": {}, "slices": {},
	"can": {}, "cans": {},
	"package": {}, "packages": {}, "packet": {}, "packets": {},
	"bunch": {}, "bunches": {}, "handful": {},
	"stick": {}, "sticks": {},
	"piece": {}, "pieces": {},
	"sprig": {}, "sprigs": {},
	"stalk": {}, "stalks": {},
	"head": {}, "heads": {}, "knob": {},
	"drop": {}, "drops": {},
}

// ParseIngredient splits a free-text ingredient line into amount, unit and
// name. Lines that do not open with a recognizable amount keep the whole
// line as the name with an amount of 1.
func ParseIngredient(line string) recipe.Ingredient {
	text := cleanText(line)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return recipe.Ingredient{Name: text, Amount: 1}
	}

	amount, ok := parseAmount(fields[0])
	if !ok {
		return recipe.Ingredient{Name: text, Amount: 1}
	}
	idx := 1

	// Mixed numbers like "1 1/2 cups" fold the fraction into the amount.
	if idx < len(fields) {
		if frac, isFrac := parseFractionToken(fields[idx]); isFrac {
			amount += frac
			idx++
		}
	}

	unit := ""
	if idx < len(fields) {
		if u, isUnit := normalizeUnit(fields[idx]); isUnit {
			unit = u
			idx++
		}
	}

	name := strings.Join(fields[idx:], " ")
	if name == "" {
		// A bare amount or amount+unit is not an ingredient line.
		return recipe.Ingredient{Name: text, Amount: 1}
	}
	return recipe.Ingredient{Name: name, Amount: amount, Unit: unit}
}

func parseAmount(token string) (float64, bool) {
	if v, ok := parseFractionToken(token); ok {
		return v, true
	}
	if decimalRe.MatchString(token) {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func parseFractionToken(token string) (float64, bool) {
	runes := []rune(token)
	if len(runes) == 1 {
		if v, ok := vulgarFractions[runes[0]]; ok {
			return v, true
		}
	}
	m := fractionRe.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	den, err := strconv.ParseFloat(m[2], 64)
	if err != nil || den == 0 {
		return 0, false
	}
	return num / den, true
}

func normalizeUnit(token string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSuffix(token, "."))
	cleaned = strings.Trim(cleaned, ",;:")
	if _, ok := knownUnits[cleaned]; !ok {
		return "", false
	}
	return cleaned, true
}

// ParseDuration converts a schema.org duration value into whole minutes.
// It accepts ISO 8601 strings such as "PT1H30M", free text such as
// "1 hour 30 minutes", and bare numbers which are taken as minutes.
// Unparseable values yield 0.
func ParseDuration(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return parseDurationString(t)
	case float64:
		return int(t)
	case int:
		return t
	case []any:
		for _, item := range t {
			if n := ParseDuration(item); n > 0 {
				return n
			}
		}
	}
	return 0
}

func parseDurationString(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if m := isoDurationRe.FindStringSubmatch(s); m != nil {
		total := parseFloatDefault(m[1])*24*60 +
			parseFloatDefault(m[2])*60 +
			parseFloatDefault(m[3]) +
			parseFloatDefault(m[4])/60
		return int(math.Round(total))
	}

	total := 0.0
	if m := hoursRe.FindStringSubmatch(s); m != nil {
		total += parseFloatDefault(m[1]) * 60
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		total += parseFloatDefault(m[1])
	}
	if total > 0 {
		return int(math.Round(total))
	}

	if bareNumberRe.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err == nil {
			return n
		}
	}
	return 0
}

func parseFloatDefault(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseServings pulls the first integer out of a yield value, which sites
// publish as numbers, strings like "Serves 4", or arrays of either.
func ParseServings(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if m := firstIntRe.FindString(t); m != "" {
			n, err := strconv.Atoi(m)
			if err == nil {
				return n
			}
		}
	case []any:
		for _, item := range t {
			if n := ParseServings(item); n > 0 {
				return n
			}
		}
	}
	return 0
}

// ImageURL flattens the schema.org image shapes (plain URL, array of URLs,
// ImageObject with a url property) into a single URL string.
func ImageURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if u := ImageURL(item); u != "" {
				return u
			}
		}
	case map[string]any:
		if u := ImageURL(t["url"]); u != "" {
			return u
		}
		return ImageURL(t["contentUrl"])
	}
	return ""
}

// BuildRecipe turns an accepted candidate into a persistable recipe.
// Instruction steps are renumbered 1..n in order, dropping empties, so the
// stored sequence never has gaps regardless of how the source numbered them.
func BuildRecipe(c *recipe.Candidate, sourceURL, id string, now time.Time) recipe.Recipe {
	steps := make([]recipe.InstructionStep, 0, len(c.Instructions))
	for _, text := range c.Instructions {
		text = cleanInstruction(text)
		if text == "" {
			continue
		}
		steps = append(steps, recipe.InstructionStep{Number: len(steps) + 1, Text: text})
	}
	return recipe.Recipe{
		ID:             id,
		Title:          cleanText(c.Title),
		Image:          strings.TrimSpace(c.Image),
		Summary:        cleanText(c.Description),
		SourceURL:      sourceURL,
		SourceName:     recipe.Domain(sourceURL),
		ReadyInMinutes: c.ReadyInMinutes,
		Servings:       c.Servings,
		Ingredients:    append([]recipe.Ingredient(nil), c.Ingredients...),
		Instructions:   steps,
		Cuisines:       append([]string(nil), c.Cuisines...),
		Tags:           append([]string(nil), c.Tags...),
		CreatedAt:      now.UTC(),
	}
}

// cleanText unescapes HTML entities and collapses all whitespace runs to
// single spaces.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// cleanRichText additionally strips markup, for values that arrive as HTML
// fragments inside JSON-LD strings.
func cleanRichText(s string) string {
	return cleanText(tagRe.ReplaceAllString(s, " "))
}

// cleanInstruction removes any leading step numbering left over from the
// source so renumbering stays authoritative.
func cleanInstruction(s string) string {
	return strings.TrimSpace(leadingStepRe.ReplaceAllString(cleanText(s), ""))
}
