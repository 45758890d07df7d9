// Package analyzer talks to an OpenAI-compatible endpoint to grade the
// argumentation quality of a justification against a fixed nine-criterion
// rubric. Every failure mode is reported as a typed *Error so callers can
// fall back to local heuristics without inspecting raw errors.
package analyzer

import (
	"context"
	"fmt"

	"github.com/mrodas/legalexam/internal/model"
)

// ErrorKind classifies analyzer failures.
type ErrorKind string

const (
	// KindUnavailable means no credentials are configured; the call was
	// never attempted.
	KindUnavailable ErrorKind = "unavailable"
	// KindRequest covers transport errors, timeouts and non-success status.
	KindRequest ErrorKind = "request"
	// KindEmpty means the service answered with no choices.
	KindEmpty ErrorKind = "empty"
	// KindMalformed means the response body was not parseable as a rubric.
	KindMalformed ErrorKind = "malformed"
	// KindOutOfRange means a sub-score fell outside the 1-5 scale.
	KindOutOfRange ErrorKind = "out_of_range"
)

// Error is the single failure type returned by Analyze.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "analyzer: " + string(e.Kind)
	}
	return fmt.Sprintf("analyzer: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Request carries everything the rubric evaluation needs.
type Request struct {
	Justification string
	CaseContext   string
	QuestionText  string
	SubmittedBool bool
	ExpectedBool  bool
}

// RubricResult is a successful nine-criterion evaluation.
type RubricResult struct {
	Scores   model.RubricScores
	Average  float64
	Feedback string
}

// Analyzer scores argumentation quality. Implementations must respect ctx
// cancellation and bound their own latency.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*RubricResult, error)
	// Available reports whether real calls can be attempted at all.
	Available() bool
}

// validateScores checks every criterion against the 1-5 scale.
func validateScores(s model.RubricScores) error {
	names := [9]string{
		"comprension_nft", "aplicacion_normativa", "distincion_soporte",
		"smart_contracts", "derechos_patrimoniales", "marco_constitucional",
		"coherencia", "jurisprudencia", "aplicacion_practica",
	}
	for i, v := range s.Criteria() {
		if v < 1 || v > 5 {
			return fmt.Errorf("criterion %s = %d outside 1-5", names[i], v)
		}
	}
	return nil
}
