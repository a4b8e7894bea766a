package services

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hybrid-rag/internal/models"
)

func setupTestSessionService(t *testing.T, store *fakeStore) (*SessionService, *MockSessionRepository) {
	mockRepo := new(MockSessionRepository)
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	service := NewSessionService(mockRepo, store, logger)
	return service, mockRepo
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestCreateSession(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, notReadyStore())

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.ChatSession")).Return(nil)

	session, err := service.CreateSession(context.Background())

	assert.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Empty(t, session.History)
	assert.False(t, session.UseVectorDB)
	mockRepo.AssertExpectations(t)
}

func TestCreateSession_RepositoryError(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, notReadyStore())

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("redis unavailable"))

	session, err := service.CreateSession(context.Background())

	assert.Error(t, err)
	assert.Nil(t, session)
}

func TestClearHistory(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, notReadyStore())

	session := &models.ChatSession{
		ID:          "session-1",
		History:     []models.Exchange{{Query: "Hi", Response: "Hello"}},
		UseVectorDB: true,
	}
	mockRepo.On("Get", mock.Anything, "session-1").Return(session, nil)
	mockRepo.On("Save", mock.Anything, session).Return(nil)

	err := service.ClearHistory(context.Background(), "session-1")

	assert.NoError(t, err)
	assert.Empty(t, session.History)
	// Clearing history leaves the retrieval toggle alone
	assert.True(t, session.UseVectorDB)
}

// ============================================================================
// Retrieval Toggle
// ============================================================================

func TestSetRetrieval_EnableWithReadyStore(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, readyStore(2))

	session := &models.ChatSession{ID: "session-1"}
	mockRepo.On("Get", mock.Anything, "session-1").Return(session, nil)
	mockRepo.On("Save", mock.Anything, session).Return(nil)

	updated, err := service.SetRetrieval(context.Background(), "session-1", true)

	assert.NoError(t, err)
	assert.True(t, updated.UseVectorDB)
}

func TestSetRetrieval_EnableRejectedWhenStoreNotReady(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, notReadyStore())

	session := &models.ChatSession{ID: "session-1"}
	mockRepo.On("Get", mock.Anything, "session-1").Return(session, nil)

	_, err := service.SetRetrieval(context.Background(), "session-1", true)

	assert.Error(t, err)
	var qErr *models.QueryError
	assert.True(t, errors.As(err, &qErr))
	assert.Equal(t, models.QueryErrorNotReady, qErr.Kind)
	assert.False(t, session.UseVectorDB)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSetRetrieval_EnableRejectedWhenStoreEmpty(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, readyStore(0))

	session := &models.ChatSession{ID: "session-1"}
	mockRepo.On("Get", mock.Anything, "session-1").Return(session, nil)

	_, err := service.SetRetrieval(context.Background(), "session-1", true)

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSetRetrieval_DisableAlwaysAllowed(t *testing.T) {
	service, mockRepo := setupTestSessionService(t, notReadyStore())

	session := &models.ChatSession{ID: "session-1", UseVectorDB: true}
	mockRepo.On("Get", mock.Anything, "session-1").Return(session, nil)
	mockRepo.On("Save", mock.Anything, session).Return(nil)

	updated, err := service.SetRetrieval(context.Background(), "session-1", false)

	assert.NoError(t, err)
	assert.False(t, updated.UseVectorDB)
}
