// Package scoring implements the grading pipeline: heuristic penalty
// detection, rubric evaluation with analyzer fallback, and aggregation of a
// whole submission into an exam report.
package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/mrodas/legalexam/internal/model"
)

// Text-length thresholds for penalty signals, in trimmed runes. Accented
// Spanish text makes byte counts misleading here.
const (
	minJustificationLen = 10
	maxJustificationLen = 1200
)

// degenerateAnswers are whole-text low-effort responses, matched after
// trimming and lowercasing.
var degenerateAnswers = map[string]bool{
	"si":           true,
	"sí":           true,
	"no":           true,
	"tal vez":      true,
	"no se":        true,
	"no sé":        true,
	"puede que si": true,
	"puede que sí": true,
	"puede que no": true,
}

// aiIndicators are matched as case-insensitive substrings.
var aiIndicators = []string{
	"chatgpt",
	"gpt",
	"inteligencia artificial",
	"ia generativa",
	"modelo de lenguaje",
	"claude",
	"gemini",
	"copilot",
	"bot",
}

// atypicalPunct are runes characteristic of text pasted from rich-text
// sources: smart quotes, en/em dashes, the ellipsis character.
var atypicalPunct = []rune{'“', '”', '‘', '’', '–', '—', '…'}

// formalConnectors are discourse markers that rarely appear in spontaneous
// student prose; two or more suggest external authorship.
var formalConnectors = []string{
	"por consiguiente",
	"en virtud de",
	"no obstante",
	"asimismo",
	"en consecuencia",
	"cabe señalar",
	"es menester",
	"dicho lo anterior",
	"a la luz de",
	"en este orden de ideas",
}

// deductions maps each signal to its point cost. The summed value is
// floor-clamped at model.PenaltyFloor.
var deductions = struct {
	tooShort, degenerate, aiMention, long, punct, connectors float64
}{
	tooShort:   -0.5,
	degenerate: -1.0,
	aiMention:  -1.0,
	long:       -0.5,
	punct:      -0.5,
	connectors: -0.5,
}

// Detect runs all penalty heuristics over a justification. It is pure and
// deterministic; no external calls.
func Detect(text string) model.PenaltySignals {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	runes := utf8.RuneCountInString(trimmed)

	var s model.PenaltySignals
	s.TooShort = runes < minJustificationLen
	s.Degenerate = degenerateAnswers[lower]
	s.SuspiciouslyLong = runes > maxJustificationLen

	for _, ind := range aiIndicators {
		if strings.Contains(lower, ind) {
			s.AIMention = true
			break
		}
	}

	for _, r := range atypicalPunct {
		if strings.ContainsRune(trimmed, r) {
			s.AtypicalPunct = true
			break
		}
	}

	hits := 0
	for _, conn := range formalConnectors {
		if strings.Contains(lower, conn) {
			hits++
		}
	}
	s.ConnectorCluster = hits >= 2

	return s
}

// Penalty converts signals into a non-positive deduction, clamped at the
// penalty floor.
func Penalty(s model.PenaltySignals) float64 {
	if !s.Any() {
		return 0
	}
	total := 0.0
	if s.TooShort {
		total += deductions.tooShort
	}
	if s.Degenerate {
		total += deductions.degenerate
	}
	if s.AIMention {
		total += deductions.aiMention
	}
	if s.SuspiciouslyLong {
		total += deductions.long
	}
	if s.AtypicalPunct {
		total += deductions.punct
	}
	if s.ConnectorCluster {
		total += deductions.connectors
	}
	if total < model.PenaltyFloor {
		total = model.PenaltyFloor
	}
	return total
}
