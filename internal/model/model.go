package model

import (
	"context"
	"time"
)

// Per-question point scale. Truth and argumentation each contribute up to
// half of the question maximum; penalties can never remove more than
// PenaltyFloor points.
const (
	MaxPerQuestion = 10.0
	TruthPoints    = 5.0
	MaxArgument    = 5.0
	PenaltyFloor   = -2.0
)

// Question is a true/false question inside a case. Questions are loaded once
// at startup and never mutated.
type Question struct {
	Text     string   `json:"text"`
	Correct  bool     `json:"correct"`
	Keywords []string `json:"keywords"`
}

// Case groups questions under a shared legal scenario.
type Case struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Answer is one submitted true/false choice plus its free-text justification.
type Answer struct {
	CaseID        int64  `json:"case_id"`
	QuestionIndex int    `json:"question_index"`
	Bool          bool   `json:"bool"`
	Justification string `json:"justification"`
}

// Submission is the complete form a student turns in: identity plus one
// answer per catalog question, keyed by case ID and question index.
type Submission struct {
	StudentName  string
	StudentCarne string
	StartedAt    time.Time
	Answers      map[AnswerKey]SubmittedAnswer
}

// AnswerKey identifies a single question within a submission.
type AnswerKey struct {
	CaseID        int64
	QuestionIndex int
}

// SubmittedAnswer is the raw per-question form input.
type SubmittedAnswer struct {
	Bool          bool   `json:"bool"`
	Justification string `json:"justification"`
}

// RubricScores holds the nine 1-5 criterion scores returned by the argument
// analyzer. JSON field names match the analyzer's response contract.
type RubricScores struct {
	ConceptualGrasp    int `json:"comprension_nft"`
	NormativeGrounding int `json:"aplicacion_normativa"`
	MediumWorkSplit    int `json:"distincion_soporte"`
	SmartContracts     int `json:"smart_contracts"`
	EconomicMoralSplit int `json:"derechos_patrimoniales"`
	Constitutional     int `json:"marco_constitucional"`
	Coherence          int `json:"coherencia"`
	Doctrine           int `json:"jurisprudencia"`
	PracticalUse       int `json:"aplicacion_practica"`
}

// Criteria returns the nine sub-scores in rubric order.
func (r RubricScores) Criteria() [9]int {
	return [9]int{
		r.ConceptualGrasp, r.NormativeGrounding, r.MediumWorkSplit,
		r.SmartContracts, r.EconomicMoralSplit, r.Constitutional,
		r.Coherence, r.Doctrine, r.PracticalUse,
	}
}

// Average returns the mean of the nine criteria.
func (r RubricScores) Average() float64 {
	sum := 0
	for _, c := range r.Criteria() {
		sum += c
	}
	return float64(sum) / 9.0
}

// PenaltySignals flags heuristic problems with a justification text.
type PenaltySignals struct {
	TooShort         bool `json:"too_short"`
	Degenerate       bool `json:"degenerate"`
	AIMention        bool `json:"ai_mention"`
	SuspiciouslyLong bool `json:"suspiciously_long"`
	AtypicalPunct    bool `json:"atypical_punctuation"`
	ConnectorCluster bool `json:"connector_cluster"`
}

// Any reports whether at least one signal fired.
func (p PenaltySignals) Any() bool {
	return p.TooShort || p.Degenerate || p.AIMention ||
		p.SuspiciouslyLong || p.AtypicalPunct || p.ConnectorCluster
}

// ScoreBreakdown is the graded result for one answer.
// Invariant: Total == clamp(Truth+Argument+Penalty, 0, MaxPerQuestion).
type ScoreBreakdown struct {
	Truth          float64        `json:"truth"`
	Argument       float64        `json:"argument"`
	Penalty        float64        `json:"penalty"`
	Total          float64        `json:"total"`
	Rubric         *RubricScores  `json:"rubric,omitempty"`
	Feedback       string         `json:"feedback,omitempty"`
	Signals        PenaltySignals `json:"signals"`
	Fallback       bool           `json:"fallback"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

// ScoredAnswer pairs a submitted answer with its breakdown for the report.
type ScoredAnswer struct {
	QuestionText  string         `json:"question_text"`
	QuestionIndex int            `json:"question_index"`
	Bool          bool           `json:"bool"`
	Correct       bool           `json:"correct"`
	Justification string         `json:"justification"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
}

// CaseResult is the per-case slice of an exam report.
type CaseResult struct {
	CaseID   int64          `json:"case_id"`
	Title    string         `json:"title"`
	Answers  []ScoredAnswer `json:"answers"`
	Subtotal float64        `json:"subtotal"`
}

// PenaltyCounters aggregates penalty signals across a whole submission.
type PenaltyCounters struct {
	TooShort         int `json:"too_short"`
	Degenerate       int `json:"degenerate"`
	AIMention        int `json:"ai_mention"`
	SuspiciouslyLong int `json:"suspiciously_long"`
	AtypicalPunct    int `json:"atypical_punctuation"`
	ConnectorCluster int `json:"connector_cluster"`
}

// Add folds one answer's signals into the counters.
func (c *PenaltyCounters) Add(s PenaltySignals) {
	if s.TooShort {
		c.TooShort++
	}
	if s.Degenerate {
		c.Degenerate++
	}
	if s.AIMention {
		c.AIMention++
	}
	if s.SuspiciouslyLong {
		c.SuspiciouslyLong++
	}
	if s.AtypicalPunct {
		c.AtypicalPunct++
	}
	if s.ConnectorCluster {
		c.ConnectorCluster++
	}
}

// ExamReport is the final grading result for one submission. It is built
// once by the aggregator and never mutated; audit events attach separately.
type ExamReport struct {
	ID           string          `json:"id"`
	StudentName  string          `json:"student_name"`
	StudentCarne string          `json:"student_carne"`
	Cases        []CaseResult    `json:"cases"`
	GrandTotal   float64         `json:"grand_total"`
	MaxPossible  float64         `json:"max_possible"`
	Penalties    PenaltyCounters `json:"penalties"`
	StartedAt    time.Time       `json:"started_at"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	Duration     time.Duration   `json:"duration"`
}

// AuditEvent is an append-only side event attached to a stored report
// (paste attempts, tab switches and similar client-reported incidents).
type AuditEvent struct {
	ID       int64     `json:"id"`
	ReportID string    `json:"report_id"`
	Type     string    `json:"type"`
	At       time.Time `json:"at"`
	Details  string    `json:"details"`
}

// AuthSession is an instructor login session.
type AuthSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// StudentSession tracks one registered student from registration to submit.
// StartedAt anchors the report's duration computation.
type StudentSession struct {
	Token     string
	Name      string
	Carne     string
	StartedAt time.Time
	Submitted bool
}

// Config holds runtime parameters resolved once at startup and passed
// explicitly into the components that need them.
type Config struct {
	Addr               string
	DBPath             string
	CasesPath          string // empty means the embedded default catalog
	LLMBaseURL         string
	LLMKey             string
	LLMModel           string
	LLMTimeout         time.Duration
	Lang               string
	Paraphrase         bool
	InstructorPassword string
	SecureCookies      bool
}

type instructorCtxKey struct{}

// ContextWithInstructor marks the request context as instructor-authenticated.
func ContextWithInstructor(ctx context.Context) context.Context {
	return context.WithValue(ctx, instructorCtxKey{}, true)
}

// IsInstructor reports whether the context carries instructor auth.
func IsInstructor(ctx context.Context) bool {
	ok, _ := ctx.Value(instructorCtxKey{}).(bool)
	return ok
}
