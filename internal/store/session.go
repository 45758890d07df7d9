package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/mrodas/legalexam/internal/model"
)

const authSessionTTL = 12 * time.Hour

// CreateStudentSession registers a student and records the exam start time
// the report duration is later derived from.
func (s *Store) CreateStudentSession(name, carne string) (*model.StudentSession, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess := &model.StudentSession{
		Token:     token,
		Name:      name,
		Carne:     carne,
		StartedAt: time.Now(),
	}
	_, err = s.db.Exec(
		`INSERT INTO student_sessions (token, name, carne, started_at, submitted) VALUES (?, ?, ?, ?, 0)`,
		sess.Token, sess.Name, sess.Carne, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetStudentSession returns the session for a token, or nil when unknown.
func (s *Store) GetStudentSession(token string) (*model.StudentSession, error) {
	var sess model.StudentSession
	err := s.db.QueryRow(
		`SELECT token, name, carne, started_at, submitted FROM student_sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.Name, &sess.Carne, &sess.StartedAt, &sess.Submitted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// MarkStudentSubmitted flags a student session as used. A session grades at
// most one submission.
func (s *Store) MarkStudentSubmitted(token string) error {
	_, err := s.db.Exec(`UPDATE student_sessions SET submitted = 1 WHERE token = ?`, token)
	return err
}

// CreateAuthSession creates an instructor login session token.
func (s *Store) CreateAuthSession() (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO auth_sessions (id, created_at, expires_at) VALUES (?, ?, ?)`,
		token, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the instructor session for a token, or nil when
// unknown or expired.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes an instructor session.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes all expired instructor sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
