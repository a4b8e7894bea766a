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
	"hybrid-rag/internal/repositories"
)

// ============================================================================
// Test Setup
// ============================================================================

type documentServiceMocks struct {
	embedder    *MockEmbedder
	docRepo     *MockDocumentRepository
	vectorRepo  *MockVectorRepository
	jobRepo     *MockJobRepository
	sessionRepo *MockSessionRepository
	store       *fakeStore
}

func setupTestDocumentService(t *testing.T, store *fakeStore) (*DocumentService, *documentServiceMocks) {
	m := &documentServiceMocks{
		embedder:    new(MockEmbedder),
		docRepo:     new(MockDocumentRepository),
		vectorRepo:  new(MockVectorRepository),
		jobRepo:     new(MockJobRepository),
		sessionRepo: new(MockSessionRepository),
		store:       store,
	}

	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	retrieval := NewRetrievalService(m.embedder, m.vectorRepo, "test-collection", logger)

	service := NewDocumentService(
		m.embedder,
		m.docRepo,
		m.vectorRepo,
		m.jobRepo,
		m.sessionRepo,
		m.store,
		retrieval,
		"test-collection",
		logger,
	)

	return service, m
}

func createUploadFiles(n int) []UploadFile {
	files := make([]UploadFile, n)
	for i := range files {
		files[i] = UploadFile{
			Filename: "notes.txt",
			Content:  []byte("Retrieval augmented generation combines search with language models. It grounds answers in documents."),
		}
	}
	return files
}

func mockEmbeddings(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, 8)
	}
	return out
}

// ============================================================================
// Upload Validation
// ============================================================================

func TestUploadDocuments_EmptyBatch(t *testing.T) {
	service, _ := setupTestDocumentService(t, readyStore(0))

	resp, err := service.UploadDocuments(context.Background(), nil, false)

	assert.Error(t, err)
	assert.Nil(t, resp)
	var vErr *models.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestUploadDocuments_TooManyFiles(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(0))

	resp, err := service.UploadDocuments(context.Background(), createUploadFiles(MaxDocuments+1), false)

	assert.Error(t, err)
	assert.Nil(t, resp)
	var iErr *models.IngestError
	assert.True(t, errors.As(err, &iErr))
	assert.Equal(t, models.IngestErrorTooManyFiles, iErr.Kind)
	m.docRepo.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestUploadDocuments_UnsupportedFormat(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(0))

	files := []UploadFile{{Filename: "photo.png", Content: []byte("binary")}}
	resp, err := service.UploadDocuments(context.Background(), files, false)

	assert.Error(t, err)
	assert.Nil(t, resp)
	var iErr *models.IngestError
	assert.True(t, errors.As(err, &iErr))
	assert.Equal(t, models.IngestErrorUnsupportedFormat, iErr.Kind)
	m.docRepo.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestUploadDocuments_EmptyFile(t *testing.T) {
	service, _ := setupTestDocumentService(t, readyStore(0))

	files := []UploadFile{{Filename: "empty.txt", Content: nil}}
	_, err := service.UploadDocuments(context.Background(), files, false)

	assert.Error(t, err)
	var iErr *models.IngestError
	assert.True(t, errors.As(err, &iErr))
	assert.Equal(t, models.IngestErrorEmpty, iErr.Kind)
}

func TestUploadDocuments_StoreNotReady(t *testing.T) {
	service, m := setupTestDocumentService(t, notReadyStore())

	resp, err := service.UploadDocuments(context.Background(), createUploadFiles(1), false)

	assert.Error(t, err)
	assert.Nil(t, resp)
	var iErr *models.IngestError
	assert.True(t, errors.As(err, &iErr))
	assert.Equal(t, models.IngestErrorStoreNotReady, iErr.Kind)

	// A rejected batch must never touch the registry
	m.docRepo.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	m.docRepo.AssertNotCalled(t, "CountReady", mock.Anything)
}

func TestUploadDocuments_MixedBatchRejectedWholesale(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(0))

	files := []UploadFile{
		{Filename: "good.txt", Content: []byte("valid content")},
		{Filename: "bad.exe", Content: []byte("nope")},
	}
	_, err := service.UploadDocuments(context.Background(), files, false)

	assert.Error(t, err)
	// The valid file must not slip through when a sibling fails validation
	m.docRepo.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

// ============================================================================
// Synchronous Ingestion
// ============================================================================

func TestUploadDocuments_SyncSuccess(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(0))

	m.docRepo.On("Register", mock.Anything, mock.AnythingOfType("*repositories.Document")).Return(nil)
	m.docRepo.On("Update", mock.Anything, mock.AnythingOfType("*repositories.Document")).Return(nil)
	m.docRepo.On("CountReady", mock.Anything).Return(1, nil)
	m.embedder.On("EmbedBatch", mock.Anything, mock.AnythingOfType("[]string")).
		Return(mockEmbeddings(1), nil)
	m.vectorRepo.On("StoreChunks", mock.Anything, "test-collection", mock.Anything).Return(nil)
	m.sessionRepo.On("SetRetrievalDefault", mock.Anything, true).Return(nil)

	resp, err := service.UploadDocuments(context.Background(), createUploadFiles(1), false)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, "ready", resp.Results[0].Status)
	assert.NotEmpty(t, resp.Results[0].DocumentID)
	assert.Greater(t, resp.Results[0].ChunkCount, 0)
	assert.Equal(t, 1, resp.DocumentCount)

	// First successful upload flips the retrieval default on
	m.sessionRepo.AssertCalled(t, "SetRetrievalDefault", mock.Anything, true)
}

func TestUploadDocuments_EmbeddingFailureMarksDocumentFailed(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(0))

	m.docRepo.On("Register", mock.Anything, mock.Anything).Return(nil)
	m.docRepo.On("Update", mock.Anything, mock.MatchedBy(func(doc *repositories.Document) bool {
		return doc.Status == repositories.DocumentStatusFailed
	})).Return(nil)
	m.docRepo.On("CountReady", mock.Anything).Return(0, nil)
	m.embedder.On("EmbedBatch", mock.Anything, mock.Anything).
		Return(nil, errors.New("embedding service unavailable"))

	resp, err := service.UploadDocuments(context.Background(), createUploadFiles(1), false)

	assert.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, "failed", resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "embedding")

	// A failed ingest must not enable retrieval
	m.sessionRepo.AssertNotCalled(t, "SetRetrievalDefault", mock.Anything, mock.Anything)
	m.vectorRepo.AssertNotCalled(t, "StoreChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_EmbeddingCountMismatch(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(0))

	m.embedder.On("EmbedBatch", mock.Anything, mock.Anything).
		Return(mockEmbeddings(99), nil)

	content := []byte("some text content for a single chunk")
	_, err := service.Ingest(context.Background(), "doc-1", "notes.txt", content)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
	m.vectorRepo.AssertNotCalled(t, "StoreChunks", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// Async Ingestion
// ============================================================================

func TestUploadDocuments_AsyncQueuesJob(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())
	service, m := setupTestDocumentService(t, readyStore(0))

	m.docRepo.On("Register", mock.Anything, mock.MatchedBy(func(doc *repositories.Document) bool {
		return doc.Status == repositories.DocumentStatusPending
	})).Return(nil)
	m.docRepo.On("CountReady", mock.Anything).Return(0, nil)
	m.jobRepo.On("CreateJob", mock.Anything, mock.AnythingOfType("*repositories.Job")).Return(nil)
	m.jobRepo.On("EnqueueJob", mock.Anything, mock.AnythingOfType("*repositories.Job")).Return(nil)

	resp, err := service.UploadDocuments(context.Background(), createUploadFiles(1), true)

	assert.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, "queued", resp.Results[0].Status)
	assert.NotEmpty(t, resp.Results[0].JobID)

	// Retrieval default only flips once the worker finishes, not at enqueue
	m.sessionRepo.AssertNotCalled(t, "SetRetrievalDefault", mock.Anything, mock.Anything)
	m.jobRepo.AssertExpectations(t)
}

func TestProcessJob_Success(t *testing.T) {
	dir := t.TempDir()
	service, m := setupTestDocumentService(t, readyStore(0))

	filePath := dir + "/doc.txt"
	assert.NoError(t, os.WriteFile(filePath, []byte("background ingestion test content"), 0644))

	doc := &repositories.Document{ID: "doc-1", Filename: "doc.txt"}
	m.docRepo.On("Get", mock.Anything, "doc-1").Return(doc, nil)
	m.docRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(mockEmbeddings(1), nil)
	m.vectorRepo.On("StoreChunks", mock.Anything, "test-collection", mock.Anything).Return(nil)
	m.sessionRepo.On("SetRetrievalDefault", mock.Anything, true).Return(nil)

	job := &repositories.Job{
		ID:   "job-1",
		Type: repositories.JobTypeDocumentIngest,
		Payload: map[string]interface{}{
			"document_id": "doc-1",
			"filename":    "doc.txt",
			"file_path":   filePath,
		},
	}

	err := service.ProcessJob(context.Background(), job)

	assert.NoError(t, err)
	assert.Equal(t, "doc-1", job.Result["document_id"])
	m.sessionRepo.AssertCalled(t, "SetRetrievalDefault", mock.Anything, true)

	// The staged upload file is removed after a successful ingest
	_, statErr := os.Stat(filePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessJob_IncompletePayload(t *testing.T) {
	service, _ := setupTestDocumentService(t, readyStore(0))

	job := &repositories.Job{
		ID:      "job-2",
		Type:    repositories.JobTypeDocumentIngest,
		Payload: map[string]interface{}{},
	}

	err := service.ProcessJob(context.Background(), job)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete payload")
}

func TestProcessJob_WrongType(t *testing.T) {
	service, _ := setupTestDocumentService(t, readyStore(0))

	job := &repositories.Job{ID: "job-3", Type: repositories.JobType("unknown")}
	err := service.ProcessJob(context.Background(), job)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported job type")
}

// ============================================================================
// Deletion and Clearing
// ============================================================================

func TestDeleteDocument_LastDocumentDisablesRetrieval(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(1))

	doc := &repositories.Document{ID: "doc-1", Filename: "notes.txt"}
	m.docRepo.On("Get", mock.Anything, "doc-1").Return(doc, nil)
	m.docRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
	m.docRepo.On("CountReady", mock.Anything).Return(0, nil)
	m.vectorRepo.On("DeleteDocumentChunks", mock.Anything, "test-collection", "doc-1").Return(nil)
	m.sessionRepo.On("SetRetrievalDefault", mock.Anything, false).Return(nil)

	err := service.DeleteDocument(context.Background(), "doc-1")

	assert.NoError(t, err)
	m.sessionRepo.AssertCalled(t, "SetRetrievalDefault", mock.Anything, false)
}

func TestDeleteDocument_OthersRemainKeepsRetrieval(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(2))

	doc := &repositories.Document{ID: "doc-1", Filename: "notes.txt"}
	m.docRepo.On("Get", mock.Anything, "doc-1").Return(doc, nil)
	m.docRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
	m.docRepo.On("CountReady", mock.Anything).Return(1, nil)
	m.vectorRepo.On("DeleteDocumentChunks", mock.Anything, "test-collection", "doc-1").Return(nil)

	err := service.DeleteDocument(context.Background(), "doc-1")

	assert.NoError(t, err)
	m.sessionRepo.AssertNotCalled(t, "SetRetrievalDefault", mock.Anything, mock.Anything)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(1))

	m.docRepo.On("Get", mock.Anything, "missing").
		Return(nil, &repositories.DocumentRepositoryError{Operation: "get_document", Message: "document not found: missing"})

	err := service.DeleteDocument(context.Background(), "missing")

	assert.Error(t, err)
	assert.True(t, repositories.IsDocumentNotFound(err))
	m.vectorRepo.AssertNotCalled(t, "DeleteDocumentChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestClearDatabase(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(3))

	m.vectorRepo.On("ResetCollection", mock.Anything, "test-collection").Return(nil)
	m.docRepo.On("Clear", mock.Anything).Return(nil)
	m.sessionRepo.On("SetRetrievalDefault", mock.Anything, false).Return(nil)

	err := service.ClearDatabase(context.Background())

	assert.NoError(t, err)
	m.vectorRepo.AssertExpectations(t)
	m.docRepo.AssertExpectations(t)
	m.sessionRepo.AssertCalled(t, "SetRetrievalDefault", mock.Anything, false)
}

func TestClearDatabase_ResetFailure(t *testing.T) {
	service, m := setupTestDocumentService(t, readyStore(3))

	m.vectorRepo.On("ResetCollection", mock.Anything, "test-collection").
		Return(errors.New("chromadb unavailable"))

	err := service.ClearDatabase(context.Background())

	assert.Error(t, err)
	m.docRepo.AssertNotCalled(t, "Clear", mock.Anything)
	m.sessionRepo.AssertNotCalled(t, "SetRetrievalDefault", mock.Anything, mock.Anything)
}
