package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mrodas/legalexam/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(total float64) *model.ExamReport {
	started := time.Now().Add(-30 * time.Minute)
	submitted := time.Now()
	return &model.ExamReport{
		ID:           uuid.NewString(),
		StudentName:  "Ana López",
		StudentCarne: "2021-04471",
		Cases: []model.CaseResult{
			{
				CaseID: 1,
				Title:  "NFT como título",
				Answers: []model.ScoredAnswer{
					{
						QuestionText:  "Q1",
						Bool:          false,
						Correct:       false,
						Justification: "La cesión debe ser expresa.",
						Breakdown: model.ScoreBreakdown{
							Truth: 5, Argument: 3.5, Total: 8.5,
							Rubric:   &model.RubricScores{Coherence: 4},
							Feedback: "Sólido",
						},
					},
				},
				Subtotal: total,
			},
		},
		GrandTotal:  total,
		MaxPossible: 100,
		StartedAt:   started,
		SubmittedAt: submitted,
		Duration:    submitted.Sub(started),
	}
}

func TestSaveAndGetReport(t *testing.T) {
	s := newTestStore(t)

	report := sampleReport(8.5)
	if err := s.SaveReport(report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, createdAt, err := s.GetReport(report.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if createdAt.IsZero() {
		t.Error("expected non-zero created_at")
	}
	if got.StudentName != "Ana López" {
		t.Errorf("student name %q", got.StudentName)
	}
	if got.GrandTotal != 8.5 {
		t.Errorf("grand total %f", got.GrandTotal)
	}
	// The nested breakdown must round-trip intact for instructor audit.
	bd := got.Cases[0].Answers[0].Breakdown
	if bd.Rubric == nil || bd.Rubric.Coherence != 4 {
		t.Error("rubric sub-scores lost in round trip")
	}
	if bd.Feedback != "Sólido" {
		t.Errorf("feedback %q", bd.Feedback)
	}

	// Unknown ID.
	if _, _, err := s.GetReport("missing"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	// Duplicate ID is rejected: reports are immutable once stored.
	if err := s.SaveReport(report); err == nil {
		t.Error("expected error on duplicate report ID")
	}
}

func TestListReportsAndAverage(t *testing.T) {
	s := newTestStore(t)

	// Empty store.
	list, err := s.ListReports()
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
	avg, err := s.AverageScore()
	if err != nil {
		t.Fatalf("AverageScore: %v", err)
	}
	if avg != 0 {
		t.Errorf("expected average 0 for empty store, got %f", avg)
	}

	for _, total := range []float64{60, 80} {
		if err := s.SaveReport(sampleReport(total)); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	list, err = s.ListReports()
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(list))
	}

	avg, err = s.AverageScore()
	if err != nil {
		t.Fatalf("AverageScore: %v", err)
	}
	if avg != 70 {
		t.Errorf("expected average 70, got %f", avg)
	}

	count, err := s.ReportCount()
	if err != nil {
		t.Fatalf("ReportCount: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)

	report := sampleReport(50)
	if err := s.SaveReport(report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	events, err := s.GetEvents(report.ID)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}

	for _, ev := range []model.AuditEvent{
		{ReportID: report.ID, Type: "paste_attempt", Details: "pregunta 2"},
		{ReportID: report.ID, Type: "tab_switch"},
	} {
		if _, err := s.AddEvent(ev); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}

	events, err = s.GetEvents(report.ID)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "paste_attempt" || events[0].Details != "pregunta 2" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].At.IsZero() {
		t.Error("event time should default to now")
	}
}

func TestStudentSessions(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateStudentSession("Ana López", "2021-04471")
	if err != nil {
		t.Fatalf("CreateStudentSession: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected session token")
	}
	if sess.StartedAt.IsZero() {
		t.Error("expected start time")
	}

	got, err := s.GetStudentSession(sess.Token)
	if err != nil {
		t.Fatalf("GetStudentSession: %v", err)
	}
	if got == nil || got.Name != "Ana López" || got.Submitted {
		t.Errorf("unexpected session: %+v", got)
	}

	if err := s.MarkStudentSubmitted(sess.Token); err != nil {
		t.Fatalf("MarkStudentSubmitted: %v", err)
	}
	got, _ = s.GetStudentSession(sess.Token)
	if !got.Submitted {
		t.Error("expected session to be marked submitted")
	}

	// Unknown token.
	got, err = s.GetStudentSession("nope")
	if err != nil {
		t.Fatalf("GetStudentSession unknown: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)

	token, err := s.CreateAuthSession()
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session")
	}
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		t.Error("expected future expiry")
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil after delete")
	}

	if err := s.CleanupExpiredSessions(); err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	// Missing key returns empty string.
	v, err := s.GetMetadata("exam_id")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}

	info := model.ExamInfo{
		ExamID:   "nft-2026-01",
		Subject:  "NFTs y Propiedad Intelectual",
		Date:     "2026-08-28",
		NumCases: 5,
	}
	if err := s.SetExamInfo(info); err != nil {
		t.Fatalf("SetExamInfo: %v", err)
	}

	got, err := s.GetExamInfo()
	if err != nil {
		t.Fatalf("GetExamInfo: %v", err)
	}
	if got != info {
		t.Errorf("GetExamInfo = %+v, want %+v", got, info)
	}

	// Upsert overwrites.
	if err := s.SetMetadata("exam_id", "nft-2026-02"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	v, _ = s.GetMetadata("exam_id")
	if v != "nft-2026-02" {
		t.Errorf("expected updated value, got %q", v)
	}
}

func TestExportAll(t *testing.T) {
	s := newTestStore(t)

	r1 := sampleReport(75)
	if err := s.SaveReport(r1); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if _, err := s.AddEvent(model.AuditEvent{ReportID: r1.ID, Type: "paste_attempt"}); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	out, err := s.ExportAll()
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Report.ID != r1.ID {
		t.Errorf("report ID %q, want %q", out[0].Report.ID, r1.ID)
	}
	if len(out[0].Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(out[0].Events))
	}
}
