package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/mrodas/legalexam/internal/i18n"
	"github.com/mrodas/legalexam/internal/model"
)

const (
	studentCookieName    = "exam_session"
	instructorCookieName = "instructor_session"
)

type studentCtxKey struct{}

func studentFromContext(ctx context.Context) *model.StudentSession {
	sess, _ := ctx.Value(studentCtxKey{}).(*model.StudentSession)
	return sess
}

// requireStudent checks for a valid student session cookie and puts the
// session on the request context.
func (h *Handler) requireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(studentCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "SessionRequired"))
			return
		}

		sess, err := h.store.GetStudentSession(cookie.Value)
		if err != nil {
			slog.Error("get student session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if sess == nil {
			writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "SessionRequired"))
			return
		}

		ctx := context.WithValue(r.Context(), studentCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInstructor checks for a valid instructor session cookie.
func (h *Handler) requireInstructor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(instructorCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("get auth session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if authSess == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := model.ContextWithInstructor(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginError"))
		return
	}

	token, err := h.store.CreateAuthSession()
	if err != nil {
		slog.Error("create auth session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     instructorCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(instructorCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     instructorCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
