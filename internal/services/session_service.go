package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/repositories"
)

// SessionService manages chat sessions and their retrieval settings
type SessionService struct {
	sessionRepo repositories.SessionRepository
	store       StoreStateProvider
	logger      *log.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	sessionRepo repositories.SessionRepository,
	store StoreStateProvider,
	logger *log.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		store:       store,
		logger:      logger,
	}
}

// CreateSession starts a new chat session with retrieval disabled
func (s *SessionService) CreateSession(ctx context.Context) (*models.ChatSession, error) {
	now := time.Now()
	session := &models.ChatSession{
		ID:          uuid.New().String(),
		History:     []models.Exchange{},
		UseVectorDB: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Printf("Created session %s", session.ID)
	return session, nil
}

// GetSession fetches a session by id
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	return s.sessionRepo.Get(ctx, sessionID)
}

// ClearHistory empties a session's conversation history. Documents in the
// vector store are untouched.
func (s *SessionService) ClearHistory(ctx context.Context, sessionID string) error {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	session.ClearHistory()
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Printf("Cleared history for session %s", sessionID)
	return nil
}

// SetRetrieval flips a session's vector-database toggle. Enabling requires
// the document store to be ready with at least one document.
func (s *SessionService) SetRetrieval(ctx context.Context, sessionID string, enabled bool) (*models.ChatSession, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if enabled {
		if !s.store.State(ctx).CanRetrieve() {
			return nil, models.RetrievalNotReadyError()
		}
	}

	session.UseVectorDB = enabled
	session.UpdatedAt = time.Now()
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Printf("Session %s retrieval set to %t", sessionID, enabled)
	return session, nil
}
