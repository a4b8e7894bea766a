package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/repositories"
)

const (
	plainSystemPrompt = "You are a helpful and friendly AI assistant. " +
		"Respond concisely and accurately. If you do not know the answer, say so."

	ragSystemPrompt = "You are a helpful and friendly AI assistant answering questions " +
		"about the user's documents. Use the following retrieved context to answer. " +
		"If the context does not contain the answer, say so rather than guessing.\n\nContext:\n%s"
)

// QueryService orchestrates a chat turn: optional retrieval, completion
// against the selected backend, and history bookkeeping
type QueryService struct {
	backend     CompletionBackend
	retriever   Retriever
	sessionRepo repositories.SessionRepository
	store       StoreStateProvider
	logger      *log.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewQueryService creates a new query service
func NewQueryService(
	backend CompletionBackend,
	retriever Retriever,
	sessionRepo repositories.SessionRepository,
	store StoreStateProvider,
	logger *log.Logger,
) *QueryService {
	return &QueryService{
		backend:     backend,
		retriever:   retriever,
		sessionRepo: sessionRepo,
		store:       store,
		logger:      logger,
		inFlight:    make(map[string]bool),
	}
}

// SubmitQuery runs one chat turn for the session. When the session has
// retrieval enabled, exactly one vector search happens before the
// completion call and the retrieved chunks are echoed in the response.
func (s *QueryService) SubmitQuery(ctx context.Context, sessionID string, req *models.QueryRequest) (*models.QueryResponse, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, &models.QueryError{
			Kind:    models.QueryErrorInvalidRequest,
			Message: "query text is required",
		}
	}

	if !s.acquire(sessionID) {
		return nil, &models.QueryError{
			Kind:    models.QueryErrorInvalidRequest,
			Message: "a query is already in progress for this session",
		}
	}
	defer s.release(sessionID)

	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	config, err := s.backend.CurrentConfig()
	if err != nil {
		return nil, err
	}

	params := models.DefaultGenerationParams()
	if req.Params != nil {
		params = *req.Params
	}

	start := time.Now()

	var contextChunks []models.ContextChunk
	var retrievalMs float64
	if session.UseVectorDB {
		if !s.store.State(ctx).CanRetrieve() {
			return nil, models.RetrievalNotReadyError()
		}

		var err error
		retrievalStart := time.Now()
		contextChunks, err = s.retriever.Retrieve(ctx, req.Text, DefaultTopK)
		if err != nil {
			return nil, fmt.Errorf("retrieval failed: %w", err)
		}
		retrievalMs = time.Since(retrievalStart).Seconds() * 1000
	}

	systemPrompt := plainSystemPrompt
	if session.UseVectorDB {
		systemPrompt = fmt.Sprintf(ragSystemPrompt, joinChunks(contextChunks))
	}

	messages := session.Messages(systemPrompt, req.Text)

	completionStart := time.Now()
	answer, err := s.backend.Complete(ctx, messages, params)
	if err != nil {
		return nil, err
	}
	completionMs := time.Since(completionStart).Seconds() * 1000
	endToEndMs := time.Since(start).Seconds() * 1000

	session.AppendExchange(req.Text, answer)
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		s.logger.Printf("Failed to save session %s after query: %v", sessionID, err)
	}

	tokens := estimateTokens(answer)
	tokensPerSec := float64(0)
	if completionMs > 0 {
		tokensPerSec = float64(tokens) / (completionMs / 1000)
	}

	s.logger.Printf("Query completed for session %s: %d context chunks, %.2fms retrieval, %.2fms completion, %.1f tok/s",
		sessionID, len(contextChunks), retrievalMs, completionMs, tokensPerSec)

	return &models.QueryResponse{
		Response: answer,
		Context:  contextChunks,
		Metrics: models.QueryMetrics{
			RetrievalTimeMs:  retrievalMs,
			CompletionTimeMs: completionMs,
			EndToEndTimeMs:   endToEndMs,
			EstimatedTokens:  tokens,
			TokensPerSecond:  tokensPerSec,
		},
		Mode:  config.Mode,
		Model: config.ModelName,
	}, nil
}

// RetrieveOnly runs a standalone retrieval for a session without a
// completion, used to preview what context a query would pull in
func (s *QueryService) RetrieveOnly(ctx context.Context, sessionID, query string, topK int) ([]models.ContextChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &models.QueryError{
			Kind:    models.QueryErrorInvalidRequest,
			Message: "query text is required",
		}
	}

	if _, err := s.sessionRepo.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	if !s.store.State(ctx).CanRetrieve() {
		return nil, models.RetrievalNotReadyError()
	}

	return s.retriever.Retrieve(ctx, query, topK)
}

func (s *QueryService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *QueryService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

func joinChunks(chunks []models.ContextChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}

// estimateTokens approximates token count as words times 4/3, close
// enough for throughput reporting
func estimateTokens(text string) int {
	return len(strings.Fields(text)) * 4 / 3
}
