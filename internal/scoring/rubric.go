package scoring

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mrodas/legalexam/internal/analyzer"
	"github.com/mrodas/legalexam/internal/model"
)

// Argument-component tuning. Below minUsableLen the external call is
// skipped entirely; the heuristic saturates between the word-count bounds.
const (
	minUsableLen       = 20
	minimalFallback    = 1.0
	heuristicLowWords  = 20
	heuristicHighWords = 120
	weightLength       = 0.6
	weightMarkers      = 0.4
	markerDenominator  = 5
)

// Fallback reasons recorded on the breakdown when the analyzer path was not
// used.
const (
	ReasonTooShort    = "too_short"
	ReasonUnavailable = "analyzer_unavailable"
	ReasonFailed      = "analyzer_failed"
)

// fallbackFeedback is the diagnostic note attached whenever the argument
// score did not come from the analyzer. The HTTP layer swaps in the
// configured language's version; this default keeps direct consumers of
// the pipeline (export, tests) from seeing empty feedback.
const fallbackFeedback = "La argumentación se calificó con el criterio automático local."

// discourseMarkers feed the heuristic argument estimate. Broader than the
// formal-connector penalty list: these are markers of any structured legal
// argument, not of suspicious authorship.
var discourseMarkers = []string{
	"porque",
	"por lo tanto",
	"según",
	"conforme",
	"sin embargo",
	"debido a",
	"establece",
	"artículo",
	"ley",
	"derecho",
	"por ende",
	"dado que",
}

// Evaluator grades single answers. The analyzer may be unavailable; every
// evaluation still produces a complete breakdown.
type Evaluator struct {
	analyzer analyzer.Analyzer
}

// NewEvaluator creates an evaluator over the given analyzer.
func NewEvaluator(a analyzer.Analyzer) *Evaluator {
	return &Evaluator{analyzer: a}
}

// Evaluate scores one answer against its question and case. It never
// returns an error: analyzer failures degrade to the local heuristic and
// are recorded on the breakdown.
func (e *Evaluator) Evaluate(ctx context.Context, ans model.Answer, q model.Question, cs model.Case) model.ScoreBreakdown {
	var bd model.ScoreBreakdown

	if ans.Bool == q.Correct {
		bd.Truth = model.TruthPoints
	}

	bd.Signals = Detect(ans.Justification)
	bd.Penalty = Penalty(bd.Signals)

	justification := strings.TrimSpace(ans.Justification)
	switch {
	case len(justification) < minUsableLen:
		bd.Argument = minimalFallback
		bd.Fallback = true
		bd.FallbackReason = ReasonTooShort
	case !e.analyzer.Available():
		bd.Argument = heuristicArgument(justification)
		bd.Fallback = true
		bd.FallbackReason = ReasonUnavailable
	default:
		result, err := e.analyzer.Analyze(ctx, analyzer.Request{
			Justification: justification,
			CaseContext:   cs.Description,
			QuestionText:  q.Text,
			SubmittedBool: ans.Bool,
			ExpectedBool:  q.Correct,
		})
		if err != nil {
			slog.Warn("argument analysis failed, using heuristic",
				"case_id", ans.CaseID, "question", ans.QuestionIndex, "error", err)
			bd.Argument = heuristicArgument(justification)
			bd.Fallback = true
			bd.FallbackReason = ReasonFailed
		} else {
			bd.Argument = clamp(result.Average/5.0*model.MaxArgument, 0, model.MaxArgument)
			scores := result.Scores
			bd.Rubric = &scores
			bd.Feedback = result.Feedback
		}
	}

	if bd.Fallback {
		bd.Feedback = fallbackFeedback
	}

	bd.Total = clamp(bd.Truth+bd.Argument+bd.Penalty, 0, model.MaxPerQuestion)
	return bd
}

// heuristicArgument is the deterministic local estimate used whenever the
// analyzer cannot: a weighted blend of justification length and discourse
// marker density, scaled onto the argument point range.
func heuristicArgument(justification string) float64 {
	words := len(strings.Fields(justification))
	lengthFactor := clamp(
		float64(words-heuristicLowWords)/float64(heuristicHighWords-heuristicLowWords),
		0, 1)

	lower := strings.ToLower(justification)
	hits := 0
	for _, m := range discourseMarkers {
		if strings.Contains(lower, m) {
			hits++
		}
	}
	markerFactor := clamp(float64(hits)/markerDenominator, 0, 1)

	score := (weightLength*lengthFactor + weightMarkers*markerFactor) * model.MaxArgument
	return clamp(score, 0, model.MaxArgument)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
