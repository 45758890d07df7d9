package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrodas/legalexam/internal/analyzer"
	"github.com/mrodas/legalexam/internal/catalog"
	appI18n "github.com/mrodas/legalexam/internal/i18n"
	"github.com/mrodas/legalexam/internal/model"
	"github.com/mrodas/legalexam/internal/scoring"
	"github.com/mrodas/legalexam/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	analyzer   *analyzer.Client
	aggregator *scoring.Aggregator
	catalog    *catalog.Catalog
	config     model.Config
	passHash   []byte

	// Audit events reported while the exam is in progress, keyed by
	// student session token. Flushed to the store on submit, once a
	// report ID exists to attach them to.
	mu      sync.Mutex
	pending map[string][]model.AuditEvent
}

// New creates a new Handler. The instructor password is hashed once here
// and only the hash is kept.
func New(s *store.Store, a *analyzer.Client, agg *scoring.Aggregator, cat *catalog.Catalog, cfg model.Config) (*Handler, error) {
	if cfg.InstructorPassword == "" {
		return nil, fmt.Errorf("instructor password is required: set --instructor-password flag or LEGALEXAM_INSTRUCTOR_PASSWORD env var")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.InstructorPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash instructor password: %w", err)
	}
	return &Handler{
		store:      s,
		analyzer:   a,
		aggregator: agg,
		catalog:    cat,
		config:     cfg,
		passHash:   hash,
		pending:    make(map[string][]model.AuditEvent),
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(h.requireStudent)
		r.Get("/api/exam", h.handleExam)
		r.Post("/api/submit", h.handleSubmit)
		r.Post("/api/events", h.handleEvent)
	})

	r.Post("/instructor/login", h.handleLogin)
	r.Post("/instructor/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireInstructor)
		r.Get("/instructor/reports", h.handleReportList)
		r.Get("/instructor/reports/{reportID}", h.handleReportDetail)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type registerRequest struct {
	Name  string `json:"name"`
	Carne string `json:"carne"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Name == "" || req.Carne == "" {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "RegisterFieldsRequired"))
		return
	}

	sess, err := h.store.CreateStudentSession(req.Name, req.Carne)
	if err != nil {
		slog.Error("create student session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     studentCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("student registered", "carne", req.Carne)
	writeJSON(w, http.StatusCreated, map[string]any{
		"name":       sess.Name,
		"carne":      sess.Carne,
		"started_at": sess.StartedAt,
	})
}

// examQuestion is the student-facing view of a question. The expected
// answer never leaves the server.
type examQuestion struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type examCase struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []examQuestion `json:"questions"`
}

func (h *Handler) handleExam(w http.ResponseWriter, r *http.Request) {
	sess := studentFromContext(r.Context())
	if sess.Submitted {
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "AlreadySubmitted"))
		return
	}

	var out []examCase
	n := 0
	for _, cs := range h.catalog.Cases() {
		ec := examCase{ID: cs.ID, Title: cs.Title, Description: cs.Description}
		for qi, q := range cs.Questions {
			ec.Questions = append(ec.Questions, examQuestion{
				Index: qi,
				Text:  h.displayText(r, q.Text, n),
			})
			n++
		}
		out = append(out, ec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": out})
}

// Spanish lead-ins used when the analyzer cannot paraphrase. Varying the
// wording per question position keeps two students' screens from being
// trivially identical.
var leadIns = []string{
	"Analice el siguiente planteamiento: ",
	"Considere con detenimiento: ",
	"Evalúe la siguiente afirmación: ",
	"Reflexione sobre lo siguiente: ",
}

// displayText returns the question text to show the student. Scoring
// always uses the canonical text; this is cosmetic only.
func (h *Handler) displayText(r *http.Request, text string, position int) string {
	if !h.config.Paraphrase {
		return text
	}
	if h.analyzer.Available() {
		p, err := h.analyzer.Paraphrase(r.Context(), text)
		if err != nil {
			slog.Warn("paraphrase failed, using lead-in variant", "error", err)
		} else if p != "" {
			return p
		}
	}
	return leadIns[position%len(leadIns)] + text
}

type submitRequest struct {
	Answers []model.Answer `json:"answers"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := studentFromContext(r.Context())
	if sess.Submitted {
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "AlreadySubmitted"))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	sub := model.Submission{
		StudentName:  sess.Name,
		StudentCarne: sess.Carne,
		StartedAt:    sess.StartedAt,
		Answers:      make(map[model.AnswerKey]model.SubmittedAnswer, len(req.Answers)),
	}
	for _, a := range req.Answers {
		key := model.AnswerKey{CaseID: a.CaseID, QuestionIndex: a.QuestionIndex}
		sub.Answers[key] = model.SubmittedAnswer{Bool: a.Bool, Justification: a.Justification}
	}

	report, err := h.aggregator.Aggregate(r.Context(), sub)
	if err != nil {
		var verr *scoring.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "MissingAnswer", map[string]any{
				"Case":     verr.CaseID,
				"Question": verr.QuestionIndex + 1,
			}))
			return
		}
		slog.Error("aggregate submission", "carne", sess.Carne, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The evaluator's fallback note is fixed Spanish; swap in the
	// configured language's version before the report leaves the server.
	for ci := range report.Cases {
		for ai := range report.Cases[ci].Answers {
			bd := &report.Cases[ci].Answers[ai].Breakdown
			if bd.Fallback {
				bd.Feedback = appI18n.T(r.Context(), "FallbackFeedback")
			}
		}
	}

	if err := h.store.SaveReport(report); err != nil {
		slog.Error("save report", "report_id", report.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.MarkStudentSubmitted(sess.Token); err != nil {
		slog.Error("mark submitted", "error", err)
	}
	h.flushEvents(sess.Token, report.ID)

	slog.Info("exam submitted",
		"report_id", report.ID,
		"carne", sess.Carne,
		"grand_total", report.GrandTotal,
		"duration", report.Duration,
	)
	writeJSON(w, http.StatusOK, report)
}

type eventRequest struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

// handleEvent buffers a client-reported incident (paste attempt, tab
// switch) until submit attaches it to the stored report.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess := studentFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "event type required")
		return
	}

	h.mu.Lock()
	h.pending[sess.Token] = append(h.pending[sess.Token], model.AuditEvent{
		Type:    req.Type,
		At:      time.Now(),
		Details: req.Details,
	})
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) flushEvents(token, reportID string) {
	h.mu.Lock()
	events := h.pending[token]
	delete(h.pending, token)
	h.mu.Unlock()

	for _, ev := range events {
		ev.ReportID = reportID
		if _, err := h.store.AddEvent(ev); err != nil {
			slog.Error("store audit event", "report_id", reportID, "error", err)
		}
	}
}

func (h *Handler) handleReportList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListReports()
	if err != nil {
		slog.Error("list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	avg, err := h.store.AverageScore()
	if err != nil {
		slog.Error("average score", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": summaries,
		"count":   len(summaries),
		"average": avg,
	})
}

func (h *Handler) handleReportDetail(w http.ResponseWriter, r *http.Request) {
	if !model.IsInstructor(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	id := chi.URLParam(r, "reportID")

	report, createdAt, err := h.store.GetReport(id)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		slog.Error("get report", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	events, err := h.store.GetEvents(id)
	if err != nil {
		slog.Error("get events", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, model.StoredReport{
		Report:    *report,
		Events:    events,
		CreatedAt: createdAt,
	})
}
