package extract

import (
	"regexp"
	"strings"
)

const (
	// Blocks above this size are treated as concatenated step dumps and
	// routed through SplitInstructionBlock instead of being kept whole.
	largeBlockChars = 400
	minStepChars    = 30
)

var (
	// methodMarkerRe locates the "Method" style heading some sites leave
	// inside a flattened instruction dump. Everything before it is the
	// ingredients preamble and gets discarded.
	methodMarkerRe = regexp.MustCompile(`(?i)\b(?:method|instructions|directions)\b\s*:?\s*`)

	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

	fillerRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)all rights reserved[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)terms (?:of|and) (?:use|service|conditions)[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)privacy policy[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)share this recipe[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)subscribe to[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)sign up (?:for|to)[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)follow us[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)click here[^.!?]*[.!?]?`),
		regexp.MustCompile(`(?i)\badvertisement\b`),
		regexp.MustCompile(`(?i)(?:nutrition(?:al)? (?:information|facts)|serving suggestions?|per serving)\b.*$`),
	}
)

// stepStarters are verbs that open a new instruction step. A sentence
// beginning with one of these closes the previous step during regrouping.
var stepStarters = map[string]struct{}{
	"add": {}, "allow": {}, "arrange": {}, "bake": {}, "beat": {}, "blend": {},
	"boil": {}, "bring": {}, "brush": {}, "chill": {}, "chop": {}, "combine": {},
	"cook": {}, "cool": {}, "cover": {}, "cut": {}, "divide": {}, "drain": {},
	"drizzle": {}, "dust": {}, "fill": {}, "flip": {}, "fold": {}, "fry": {},
	"garnish": {}, "grate": {}, "grease": {}, "grill": {}, "heat": {},
	"knead": {}, "leave": {}, "let": {}, "line": {}, "lower": {}, "marinate": {},
	"mash": {}, "melt": {}, "mix": {}, "peel": {}, "place": {}, "pour": {},
	"preheat": {}, "press": {}, "put": {}, "reduce": {}, "remove": {},
	"repeat": {}, "return": {}, "roast": {}, "roll": {}, "rub": {}, "season": {},
	"serve": {}, "set": {}, "shape": {}, "simmer": {}, "slice": {}, "soak": {},
	"spread": {}, "sprinkle": {}, "squeeze": {}, "stir": {}, "strain": {},
	"take": {}, "tip": {}, "top": {}, "toss": {}, "transfer": {}, "turn": {},
	"warm": {}, "whisk": {}, "wrap": {},
}

// SplitInstructionBlock recovers individual steps from a page that rendered
// its whole method as one block of text. It discards any ingredients
// preamble before a "Method" marker, strips filler and legal boilerplate,
// splits into sentences, and regroups them into steps at sentences that
// open with a cooking verb. Fragments shorter than the step minimum are
// dropped; callers renumber the result.
func SplitInstructionBlock(text string) []string {
	text = cleanText(text)
	if loc := methodMarkerRe.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	for _, re := range fillerRes {
		text = re.ReplaceAllString(text, " ")
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var groups []string
	current := sentences[0]
	for _, sentence := range sentences[1:] {
		if startsWithStepVerb(sentence) {
			groups = append(groups, current)
			current = sentence
			continue
		}
		current += " " + sentence
	}
	groups = append(groups, current)

	steps := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if len([]rune(g)) < minStepChars {
			continue
		}
		steps = append(steps, g)
	}
	return steps
}

func splitSentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func startsWithStepVerb(sentence string) bool {
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(strings.Trim(fields[0], ",:;"))
	_, ok := stepStarters[first]
	return ok
}
