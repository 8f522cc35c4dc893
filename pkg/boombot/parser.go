package boombot

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxRecommendations caps the number of records rendered per reply.
const MaxRecommendations = 3

const (
	defaultEntryPrice = "TBD"
	defaultExitTarget = "TBD"
	defaultReason     = "Strong fundamentals and market outlook"

	// NoRecommendationsMessage is returned when a reply has neither records nor enough prose.
	NoRecommendationsMessage = "I couldn't find specific stock recommendations in the response. Please try asking for a different sector."

	minFallbackRunes = 50
)

const (
	keyStockName       = "stock name"
	keyEntryPrice      = "entry price"
	keyExitTarget      = "exit target"
	keyReasonForGrowth = "reason for growth"
)

var (
	disclaimerPattern = regexp.MustCompile(`(?is)\*\*disclaimer:\*\*.*`)
	// **Key:** value, **Key**: value, optionally behind a list bullet.
	labeledLinePattern = regexp.MustCompile(`^(?:[-*•+]\s+|\d+[.)]\s+)?\*{2,}([^:*]+?)\s*(?::\*{2,}|\*{2,}\s*:)\s*(.+)$`)
	emphasisRunPattern = regexp.MustCompile(`\*{3,}`)
	blankRunPattern    = regexp.MustCompile(`\n{3,}`)
)

// fillerMarkers flag introductory lines that never carry record data.
var fillerMarkers = []string{"okay", "here are", "suggest", "disclaimer"}

// Recommendation is one stock suggestion extracted from generated text.
type Recommendation struct {
	Name            string `json:"name"`
	EntryPrice      string `json:"entry_price,omitempty"`
	ExitTarget      string `json:"exit_target,omitempty"`
	ReasonForGrowth string `json:"reason_for_growth,omitempty"`
}

// Line renders the record on one line, substituting defaults for missing fields.
func (r Recommendation) Line() string {
	return r.Name +
		" | Entry Price: " + orDefault(r.EntryPrice, defaultEntryPrice) +
		" | Exit Price: " + orDefault(r.ExitTarget, defaultExitTarget) +
		" | Reason: " + orDefault(r.ReasonForGrowth, defaultReason)
}

// ParsedResponse is the outcome of parsing one generated reply.
type ParsedResponse struct {
	Text            string           `json:"text"`
	Recommendations []Recommendation `json:"recommendations"`
	// Fallback is true when no records were found and Text is cleaned prose.
	Fallback bool `json:"fallback"`
}

// FormatResponse turns a raw generated reply into display text.
func FormatResponse(raw string) string {
	return ParseResponse(raw).Text
}

// ParseRecommendations extracts at most MaxRecommendations records from raw.
func ParseRecommendations(raw string) []Recommendation {
	return scanRecommendations(StripDisclaimer(raw))
}

// ParseResponse extracts records from raw and renders them, falling back to
// cleaned prose when there are none. It never fails.
func ParseResponse(raw string) ParsedResponse {
	body := StripDisclaimer(raw)
	records := scanRecommendations(body)
	if len(records) > 0 {
		lines := make([]string, 0, len(records))
		for _, rec := range records {
			lines = append(lines, rec.Line())
		}
		return ParsedResponse{
			Text:            strings.TrimSpace(strings.Join(lines, "\n")),
			Recommendations: records,
		}
	}
	return ParsedResponse{
		Text:            cleanFallback(body),
		Recommendations: []Recommendation{},
		Fallback:        true,
	}
}

// StripDisclaimer drops everything from the first **Disclaimer:** marker on.
func StripDisclaimer(text string) string {
	return disclaimerPattern.ReplaceAllString(text, "")
}

type scanState int

const (
	stateIdle scanState = iota
	stateOpen
)

// recordScanner holds the single-pass state: either no record is open, or
// current is being filled. A name line always closes the open record.
type recordScanner struct {
	state   scanState
	current Recommendation
	done    []Recommendation
}

func (s *recordScanner) openRecord(name string) {
	s.flush()
	s.current = Recommendation{Name: name}
	s.state = stateOpen
}

func (s *recordScanner) setField(key, value string) {
	if s.state != stateOpen {
		return
	}
	switch key {
	case keyEntryPrice:
		s.current.EntryPrice = value
	case keyExitTarget:
		s.current.ExitTarget = value
	case keyReasonForGrowth:
		s.current.ReasonForGrowth = value
	}
}

func (s *recordScanner) flush() {
	if s.state == stateOpen && s.current.Name != "" {
		s.done = append(s.done, s.current)
	}
	s.current = Recommendation{}
	s.state = stateIdle
}

func scanRecommendations(body string) []Recommendation {
	var s recordScanner
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isFillerLine(line) {
			continue
		}
		key, value, ok := splitLabeledLine(line)
		if !ok {
			continue
		}
		if key == keyStockName {
			s.openRecord(value)
			continue
		}
		s.setField(key, value)
	}
	s.flush()

	if len(s.done) > MaxRecommendations {
		s.done = s.done[:MaxRecommendations]
	}
	return s.done
}

func isFillerLine(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range fillerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func splitLabeledLine(line string) (key, value string, ok bool) {
	m := labeledLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(m[2]), true
}

func cleanFallback(body string) string {
	cleaned := emphasisRunPattern.ReplaceAllString(body, "**")
	cleaned = blankRunPattern.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) <= minFallbackRunes {
		return NoRecommendationsMessage
	}
	return cleaned
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
