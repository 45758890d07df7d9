package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrodas/legalexam/internal/catalog"
	"github.com/mrodas/legalexam/internal/model"
)

// ValidationError reports the first missing answer in an incomplete
// submission. Aggregation never partially scores.
type ValidationError struct {
	CaseID        int64
	QuestionIndex int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("submission incomplete: missing answer for case %d question %d",
		e.CaseID, e.QuestionIndex)
}

// Aggregator runs the evaluator across every question of a submission and
// assembles the final report.
type Aggregator struct {
	evaluator *Evaluator
	catalog   *catalog.Catalog
	now       func() time.Time
}

// NewAggregator creates an aggregator over the given evaluator and catalog.
func NewAggregator(e *Evaluator, c *catalog.Catalog) *Aggregator {
	return &Aggregator{evaluator: e, catalog: c, now: time.Now}
}

// Aggregate validates and grades a whole submission. Per-question
// evaluations fan out concurrently; the report always lists cases and
// questions in catalog order. A cancelled ctx aborts with no report.
func (a *Aggregator) Aggregate(ctx context.Context, sub model.Submission) (*model.ExamReport, error) {
	cases := a.catalog.Cases()

	// Completeness first: fail fast on the first missing entry, in
	// catalog order, before any scoring work starts.
	for _, cs := range cases {
		for qi := range cs.Questions {
			if _, ok := sub.Answers[model.AnswerKey{CaseID: cs.ID, QuestionIndex: qi}]; !ok {
				return nil, &ValidationError{CaseID: cs.ID, QuestionIndex: qi}
			}
		}
	}

	// Fan out one evaluation per question into pre-indexed slots, so the
	// barrier below reassembles results in deterministic catalog order.
	results := make([][]model.ScoredAnswer, len(cases))
	var wg sync.WaitGroup
	for ci, cs := range cases {
		results[ci] = make([]model.ScoredAnswer, len(cs.Questions))
		for qi, q := range cs.Questions {
			raw := sub.Answers[model.AnswerKey{CaseID: cs.ID, QuestionIndex: qi}]
			ans := model.Answer{
				CaseID:        cs.ID,
				QuestionIndex: qi,
				Bool:          raw.Bool,
				Justification: raw.Justification,
			}
			wg.Add(1)
			go func(ci, qi int, ans model.Answer, q model.Question, cs model.Case) {
				defer wg.Done()
				bd := a.evaluator.Evaluate(ctx, ans, q, cs)
				results[ci][qi] = model.ScoredAnswer{
					QuestionText:  q.Text,
					QuestionIndex: qi,
					Bool:          ans.Bool,
					Correct:       q.Correct,
					Justification: ans.Justification,
					Breakdown:     bd,
				}
			}(ci, qi, ans, q, cs)
		}
	}
	wg.Wait()

	// A cancelled request must not produce a report at all; in-flight
	// analyzer calls shared ctx and have already fallen back or aborted.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &model.ExamReport{
		ID:           uuid.NewString(),
		StudentName:  sub.StudentName,
		StudentCarne: sub.StudentCarne,
		Cases:        make([]model.CaseResult, 0, len(cases)),
		MaxPossible:  a.catalog.MaxPossible(),
		StartedAt:    sub.StartedAt,
		SubmittedAt:  a.now(),
	}

	for ci, cs := range cases {
		cr := model.CaseResult{CaseID: cs.ID, Title: cs.Title, Answers: results[ci]}
		for _, sa := range results[ci] {
			cr.Subtotal += sa.Breakdown.Total
			report.Penalties.Add(sa.Breakdown.Signals)
		}
		report.GrandTotal += cr.Subtotal
		report.Cases = append(report.Cases, cr)
	}

	if !sub.StartedAt.IsZero() {
		report.Duration = report.SubmittedAt.Sub(sub.StartedAt)
	}

	return report, nil
}
