package repositories

import (
	"context"
	"errors"
	"strings"

	"hybrid-rag/internal/models"
)

// SessionRepository defines the interface for chat session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	Get(ctx context.Context, sessionID string) (*models.ChatSession, error)
	Save(ctx context.Context, session *models.ChatSession) error
	Delete(ctx context.Context, sessionID string) error

	// SetRetrievalDefault flips the UseVectorDB flag on every stored session.
	// Used when the first upload succeeds and when the database is cleared.
	SetRetrievalDefault(ctx context.Context, enabled bool) error

	// Health
	Ping(ctx context.Context) error
}

// SessionRepositoryError represents errors from the session repository
type SessionRepositoryError struct {
	Operation string
	SessionID string
	Err       error
	Message   string
}

func (e *SessionRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.SessionID != "" {
		prefix += " (session: " + e.SessionID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *SessionRepositoryError) Unwrap() error {
	return e.Err
}

// NewSessionRepositoryError creates a new session repository error
func NewSessionRepositoryError(operation string, sessionID string, err error, message string) *SessionRepositoryError {
	return &SessionRepositoryError{
		Operation: operation,
		SessionID: sessionID,
		Err:       err,
		Message:   message,
	}
}

// SessionNotFoundError reports a missing session
func SessionNotFoundError(sessionID string) error {
	return NewSessionRepositoryError("get_session", sessionID, nil, "session not found: "+sessionID)
}

// IsSessionNotFound reports whether err is a missing-session error
func IsSessionNotFound(err error) bool {
	var repoErr *SessionRepositoryError
	return errors.As(err, &repoErr) && strings.Contains(repoErr.Message, "not found")
}
