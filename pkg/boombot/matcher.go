package boombot

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

const fuzzyThreshold = 0.7

// MatchLayer names the matching rule that accepted an input.
type MatchLayer string

const (
	LayerNone         MatchLayer = ""
	LayerExact        MatchLayer = "exact"
	LayerCompact      MatchLayer = "compact"
	LayerContainment  MatchLayer = "containment"
	LayerFuzzy        MatchLayer = "fuzzy"
	LayerFuzzySynonym MatchLayer = "fuzzy_synonym"
	LayerSynonym      MatchLayer = "synonym"
	LayerQualified    MatchLayer = "qualified"
)

// MatchResult describes how an input was classified.
type MatchResult struct {
	Input      string     `json:"text"`
	Normalized string     `json:"normalized"`
	Matched    bool       `json:"valid"`
	Layer      MatchLayer `json:"layer,omitempty"`
	// Target is the vocabulary entry or synonym key that accepted the input.
	Target string `json:"target,omitempty"`
}

// matchInput is the per-call normalized view shared by every strategy.
type matchInput struct {
	text    string
	compact string
}

type matchStrategy struct {
	layer MatchLayer
	match func(v *Vocabulary, in matchInput) (string, bool)
}

// strategies run in order; the first one that matches wins.
var strategies = []matchStrategy{
	{LayerExact, matchExact},
	{LayerCompact, matchCompact},
	{LayerContainment, matchContainment},
	{LayerFuzzy, matchFuzzySectors},
	{LayerFuzzySynonym, matchFuzzySynonyms},
	{LayerSynonym, matchSynonym},
	{LayerQualified, matchQualified},
}

// Matcher classifies free text as a recognized sector. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	vocab  *Vocabulary
	logger *slog.Logger
}

// NewMatcher returns a matcher over vocab. A nil vocab uses DefaultVocabulary.
func NewMatcher(vocab *Vocabulary, logger *slog.Logger) *Matcher {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{vocab: vocab, logger: logger}
}

// Vocabulary returns the vocabulary the matcher reads.
func (m *Matcher) Vocabulary() *Vocabulary {
	return m.vocab
}

// IsValidSector reports whether text names a recognized sector.
func (m *Matcher) IsValidSector(text string) bool {
	return m.Match(text).Matched
}

// Match runs the layered strategies against text and reports the first hit.
func (m *Matcher) Match(text string) MatchResult {
	normalized := Normalize(text)
	result := MatchResult{Input: text, Normalized: normalized}
	if normalized == "" {
		return result
	}
	in := matchInput{text: normalized, compact: removeSpaces(normalized)}
	for _, s := range strategies {
		if target, ok := s.match(m.vocab, in); ok {
			result.Matched = true
			result.Layer = s.layer
			result.Target = target
			m.logger.Debug("sector matched", "input", text, "normalized", normalized, "layer", s.layer, "target", target)
			return result
		}
	}
	m.logger.Debug("sector not matched", "input", text, "normalized", normalized)
	return result
}

// Normalize lowercases text and collapses runs of hyphens, underscores and
// whitespace into single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func matchExact(v *Vocabulary, in matchInput) (string, bool) {
	if _, ok := v.sectorSet[in.text]; ok {
		return in.text, true
	}
	return "", false
}

func matchCompact(v *Vocabulary, in matchInput) (string, bool) {
	for i, compact := range v.compactSectors {
		if compact == in.compact {
			return v.sectors[i], true
		}
	}
	return "", false
}

func matchContainment(v *Vocabulary, in matchInput) (string, bool) {
	for i, sector := range v.sectors {
		compact := v.compactSectors[i]
		if strings.Contains(sector, in.text) || strings.Contains(in.text, sector) ||
			strings.Contains(compact, in.compact) || strings.Contains(in.compact, compact) {
			return sector, true
		}
	}
	return "", false
}

func matchFuzzySectors(v *Vocabulary, in matchInput) (string, bool) {
	for i, compact := range v.compactSectors {
		if fuzzyMatch(in.compact, compact) {
			return v.sectors[i], true
		}
	}
	return "", false
}

func matchFuzzySynonyms(v *Vocabulary, in matchInput) (string, bool) {
	for i, compact := range v.compactSynonyms {
		if fuzzyMatch(in.compact, compact) {
			return v.synonyms[i].Key, true
		}
	}
	return "", false
}

func matchSynonym(v *Vocabulary, in matchInput) (string, bool) {
	if _, ok := v.synonymSet[in.text]; ok {
		return in.text, true
	}
	return "", false
}

func matchQualified(v *Vocabulary, in matchInput) (string, bool) {
	qualified := false
	for _, q := range v.qualifiers {
		if strings.Contains(in.text, q) {
			qualified = true
			break
		}
	}
	if !qualified {
		return "", false
	}
	for i, sector := range v.sectors {
		compact := v.compactSectors[i]
		if strings.Contains(in.text, sector) || strings.Contains(in.compact, compact) {
			return sector, true
		}
		if fuzzyMatch(in.compact, compact) {
			return sector, true
		}
	}
	for i, syn := range v.synonyms {
		if strings.Contains(in.text, syn.Key) {
			return syn.Key, true
		}
		if fuzzyMatch(in.compact, v.compactSynonyms[i]) {
			return syn.Key, true
		}
	}
	return "", false
}

// fuzzyMatch accepts when the Jaccard similarity of the distinct runes, or the
// share of input runes that occur anywhere in target, reaches fuzzyThreshold.
// Strings of three runes or fewer must be equal.
func fuzzyMatch(input, target string) bool {
	inputLen := utf8.RuneCountInString(input)
	targetLen := utf8.RuneCountInString(target)
	if inputLen == 0 || targetLen == 0 {
		return false
	}
	if inputLen <= 3 || targetLen <= 3 {
		return input == target
	}

	inputSet := runeSet(input)
	targetSet := runeSet(target)
	intersection := 0
	for r := range inputSet {
		if _, ok := targetSet[r]; ok {
			intersection++
		}
	}
	union := len(inputSet) + len(targetSet) - intersection
	similarity := 0.0
	if union > 0 {
		similarity = float64(intersection) / float64(union)
	}

	present := 0
	for _, r := range input {
		if _, ok := targetSet[r]; ok {
			present++
		}
	}
	inputInTarget := float64(present) / float64(inputLen)

	return similarity >= fuzzyThreshold || inputInTarget >= fuzzyThreshold
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
