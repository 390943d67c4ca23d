package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// DefaultQualityFloor is the minimum quality score a chunk needs to pass
// the ranking filter. Empirically chosen; configurable, not an invariant.
const DefaultQualityFloor = 0.5

// minMeaningfulLength is the text length below which a chunk scores zero:
// too short to be useful prose context.
const minMeaningfulLength = 50

// mathSymbols are notational characters that flag formula-dense text.
var mathSymbols = []rune{'∑', '∫', '∂', '√', '±', '≤', '≥', '≠', '∞'}

// functionTokens are call-like substrings that flag formula-dense text.
var functionTokens = []string{"exp(", "log(", "sin(", "cos(", "sqrt("}

// ContextRanker converts raw similarity-ranked hits into a final,
// quality-weighted ranking suitable for grounding a language-model
// prompt. Pure vector similarity over-retrieves formula-dense or tabular
// fragments that make poor prose context; the ranker penalizes those
// while guaranteeing a non-empty result whenever candidates exist.
type ContextRanker struct {
	qualityFloor float64
}

// NewContextRanker creates a ranker with the given quality floor.
// Values outside (0,1] fall back to DefaultQualityFloor.
func NewContextRanker(qualityFloor float64) *ContextRanker {
	if qualityFloor <= 0 || qualityFloor > 1 {
		qualityFloor = DefaultQualityFloor
	}
	return &ContextRanker{qualityFloor: qualityFloor}
}

// Rank scores every candidate's quality, combines it multiplicatively
// with similarity, filters at the quality floor, and returns the top
// topK by combined score. When the filter would starve the result set
// below topK, the filter is discarded and the full candidate set is
// ranked instead: lower-quality context beats too little context.
func (r *ContextRanker) Rank(candidates []domain.RankedResult, topK int) []domain.RankedResult {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	scored := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		c.QualityScore = ScoreQuality(c.Chunk.Text)
		c.CombinedScore = c.Similarity * c.QualityScore
		scored[i] = c
	}

	filtered := make([]domain.RankedResult, 0, len(scored))
	for _, c := range scored {
		if c.QualityScore >= r.qualityFloor {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) < topK {
		logger.Debug("Quality filter kept %d of %d candidates, relaxing to unfiltered ranking",
			len(filtered), len(scored))
		filtered = scored
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CombinedScore > filtered[j].CombinedScore
	})

	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered
}

// ScoreQuality estimates how suitable a chunk of text is as prose
// context, in [0,1]. It starts from 1.0 and applies independent additive
// penalties for formula symbols, bracket density, numeric-token ratio,
// line-break density, and single-letter variable tokens.
func ScoreQuality(text string) float64 {
	runes := []rune(text)
	length := len(runes)
	if length < minMeaningfulLength {
		return 0.0
	}

	score := 1.0
	per100 := float64(length) / 100.0

	// Mathematical/notational symbol density.
	symbols := 0
	for _, r := range runes {
		for _, s := range mathSymbols {
			if r == s {
				symbols++
				break
			}
		}
	}
	lower := strings.ToLower(text)
	for _, tok := range functionTokens {
		symbols += strings.Count(lower, tok)
	}
	if symbols > 0 {
		density := float64(symbols) / per100
		score -= min(0.4, density*0.1)
	}

	// Bracket density.
	brackets := 0
	for _, r := range runes {
		switch r {
		case '(', ')', '[', ']', '{', '}', '<', '>':
			brackets++
		}
	}
	bracketDensity := float64(brackets) / float64(length)
	if bracketDensity > 0.15 {
		score -= min(0.3, bracketDensity*0.5)
	}

	// Numeric-token ratio among numeric + alphabetic tokens.
	tokens := strings.Fields(text)
	numeric, alphabetic, shortAlpha := 0, 0, 0
	for _, tok := range tokens {
		switch classifyToken(tok) {
		case tokenNumeric:
			numeric++
		case tokenAlphabetic:
			alphabetic++
			if alphaLength(tok) <= 2 {
				shortAlpha++
			}
		}
	}
	if numeric+alphabetic > 0 {
		ratio := float64(numeric) / float64(numeric+alphabetic)
		if ratio > 0.3 {
			score -= min(0.3, ratio*0.5)
		}
	}

	// Line-break density catches equation blocks and tabular dumps.
	newlines := strings.Count(text, "\n")
	lineDensity := float64(newlines) / per100
	if lineDensity > 5 {
		score -= min(0.2, lineDensity*0.02)
	}

	// Short-token ratio catches single-letter variable runs.
	if alphabetic > 0 && float64(shortAlpha)/float64(alphabetic) > 0.4 {
		score -= 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

type tokenClass int

const (
	tokenOther tokenClass = iota
	tokenNumeric
	tokenAlphabetic
)

// classifyToken labels a whitespace-delimited token. A token containing
// any letter is alphabetic; one with digits but no letters is numeric.
func classifyToken(tok string) tokenClass {
	hasLetter, hasDigit := false, false
	for _, r := range tok {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if hasLetter {
		return tokenAlphabetic
	}
	if hasDigit {
		return tokenNumeric
	}
	return tokenOther
}

// alphaLength counts the letters in a token, ignoring punctuation, so
// "x," counts as a single-letter token.
func alphaLength(tok string) int {
	n := 0
	for _, r := range tok {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
