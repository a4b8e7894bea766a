package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/repositories"
)

// MaxDocuments is the largest batch accepted by a single upload request
const MaxDocuments = 5

const storeBatchSize = 100

// DocumentService orchestrates the ingestion pipeline: extract, chunk,
// embed, store, register
type DocumentService struct {
	embedder    EmbedderInterface
	docRepo     repositories.DocumentRepository
	vectorRepo  repositories.VectorRepository
	jobRepo     repositories.JobRepository
	sessionRepo repositories.SessionRepository
	store       StoreStateProvider
	retrieval   *RetrievalService
	chunker     *Chunker
	collection  string
	uploadDir   string
	logger      *log.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	embedder EmbedderInterface,
	docRepo repositories.DocumentRepository,
	vectorRepo repositories.VectorRepository,
	jobRepo repositories.JobRepository,
	sessionRepo repositories.SessionRepository,
	store StoreStateProvider,
	retrieval *RetrievalService,
	collection string,
	logger *log.Logger,
) *DocumentService {
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "/tmp/hybrid-rag-uploads"
	}

	return &DocumentService{
		embedder:    embedder,
		docRepo:     docRepo,
		vectorRepo:  vectorRepo,
		jobRepo:     jobRepo,
		sessionRepo: sessionRepo,
		store:       store,
		retrieval:   retrieval,
		chunker:     NewChunker(200, 20),
		collection:  collection,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// UploadFile is one file in an upload batch
type UploadFile struct {
	Filename string
	Content  []byte
}

// UploadResult reports the outcome for a single uploaded file
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	JobID      string `json:"job_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UploadResponse summarizes an upload batch
type UploadResponse struct {
	Results          []UploadResult `json:"results"`
	DocumentCount    int            `json:"document_count"`
	ProcessingTimeMs float64        `json:"processing_time_ms,omitempty"`
}

// UploadDocuments validates and ingests a batch of files. The whole batch
// is rejected before any document is registered when validation fails or
// the store is not ready, so a failed upload never changes the document
// count. With async set, files are queued for the background worker.
func (s *DocumentService) UploadDocuments(ctx context.Context, files []UploadFile, async bool) (*UploadResponse, error) {
	start := time.Now()

	if len(files) == 0 {
		return nil, &models.ValidationError{Field: "files", Message: "at least one file is required"}
	}
	if len(files) > MaxDocuments {
		return nil, models.TooManyFilesError(MaxDocuments)
	}
	for _, f := range files {
		if !SupportedFormat(f.Filename) {
			return nil, models.UnsupportedFormatError(f.Filename)
		}
		if len(f.Content) == 0 {
			return nil, models.EmptyDocumentError(f.Filename)
		}
	}

	if s.store.State(ctx).Status != models.StoreStatusReady {
		return nil, models.StoreNotReadyError()
	}

	results := make([]UploadResult, 0, len(files))
	anyReady := false
	for _, f := range files {
		var result UploadResult
		if async {
			result = s.enqueueUpload(ctx, f)
		} else {
			result = s.ingestSync(ctx, f)
			if result.Status == string(repositories.DocumentStatusReady) {
				anyReady = true
			}
		}
		results = append(results, result)
	}

	if anyReady {
		// first successful upload turns retrieval on for stored sessions
		if err := s.sessionRepo.SetRetrievalDefault(ctx, true); err != nil {
			s.logger.Printf("Failed to enable retrieval default: %v", err)
		}
		s.retrieval.InvalidateCache()
	}

	count, err := s.docRepo.CountReady(ctx)
	if err != nil {
		s.logger.Printf("Failed to count documents: %v", err)
	}

	return &UploadResponse{
		Results:          results,
		DocumentCount:    count,
		ProcessingTimeMs: time.Since(start).Seconds() * 1000,
	}, nil
}

// ingestSync runs the full pipeline for one file in the request goroutine
func (s *DocumentService) ingestSync(ctx context.Context, f UploadFile) UploadResult {
	documentID := uuid.New().String()
	now := time.Now()

	doc := &repositories.Document{
		ID:        documentID,
		Filename:  f.Filename,
		FileSize:  int64(len(f.Content)),
		Status:    repositories.DocumentStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docRepo.Register(ctx, doc); err != nil {
		return UploadResult{Filename: f.Filename, Status: "failed", Error: err.Error()}
	}

	chunkCount, err := s.Ingest(ctx, documentID, f.Filename, f.Content)
	if err != nil {
		s.logger.Printf("[%s] Ingestion failed: %v", documentID, err)
		doc.Status = repositories.DocumentStatusFailed
		doc.Error = err.Error()
		doc.UpdatedAt = time.Now()
		_ = s.docRepo.Update(ctx, doc)
		return UploadResult{DocumentID: documentID, Filename: f.Filename, Status: "failed", Error: err.Error()}
	}

	doc.Status = repositories.DocumentStatusReady
	doc.ChunkCount = chunkCount
	doc.UpdatedAt = time.Now()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Printf("[%s] Failed to update document status: %v", documentID, err)
	}

	return UploadResult{
		DocumentID: documentID,
		Filename:   f.Filename,
		Status:     string(repositories.DocumentStatusReady),
		ChunkCount: chunkCount,
	}
}

// enqueueUpload saves the file to disk and queues a background ingest job
func (s *DocumentService) enqueueUpload(ctx context.Context, f UploadFile) UploadResult {
	documentID := uuid.New().String()
	jobID := uuid.New().String()
	now := time.Now()

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return UploadResult{Filename: f.Filename, Status: "failed", Error: err.Error()}
	}

	filePath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", documentID, filepath.Base(f.Filename)))
	if err := os.WriteFile(filePath, f.Content, 0644); err != nil {
		return UploadResult{Filename: f.Filename, Status: "failed", Error: err.Error()}
	}

	doc := &repositories.Document{
		ID:        documentID,
		Filename:  f.Filename,
		FileSize:  int64(len(f.Content)),
		Status:    repositories.DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docRepo.Register(ctx, doc); err != nil {
		os.Remove(filePath)
		return UploadResult{Filename: f.Filename, Status: "failed", Error: err.Error()}
	}

	job := &repositories.Job{
		ID:         jobID,
		Type:       repositories.JobTypeDocumentIngest,
		Status:     repositories.JobStatusQueued,
		Message:    "Document ingest queued",
		MaxRetries: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
		Payload: map[string]interface{}{
			"document_id": documentID,
			"filename":    f.Filename,
			"file_path":   filePath,
			"file_size":   int64(len(f.Content)),
			"collection":  s.collection,
		},
	}
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		os.Remove(filePath)
		return UploadResult{DocumentID: documentID, Filename: f.Filename, Status: "failed", Error: err.Error()}
	}
	if err := s.jobRepo.EnqueueJob(ctx, job); err != nil {
		os.Remove(filePath)
		return UploadResult{DocumentID: documentID, Filename: f.Filename, Status: "failed", Error: err.Error()}
	}

	s.logger.Printf("Queued ingest job %s for document %s (%s)", jobID, documentID, f.Filename)
	return UploadResult{
		DocumentID: documentID,
		Filename:   f.Filename,
		Status:     "queued",
		JobID:      jobID,
	}
}

// Ingest runs extract, chunk, embed, store for one document. Shared by
// the synchronous upload path and the background worker.
func (s *DocumentService) Ingest(ctx context.Context, documentID, filename string, content []byte) (int, error) {
	s.logger.Printf("[%s] Extracting text from %s (%d bytes)", documentID, filename, len(content))
	text, err := ExtractText(filename, content)
	if err != nil {
		return 0, fmt.Errorf("extraction failed: %w", err)
	}
	if len(text) == 0 {
		return 0, models.EmptyDocumentError(filename)
	}

	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, models.EmptyDocumentError(filename)
	}
	s.logger.Printf("[%s] Split into %d chunks", documentID, len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}
	if len(embeddings) != len(texts) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(texts))
	}

	vectorChunks := make([]*repositories.Chunk, len(chunks))
	for i, c := range chunks {
		vectorChunks[i] = &repositories.Chunk{
			ID:         ChunkID(documentID, i),
			DocumentID: documentID,
			Text:       c.Text,
			Embedding:  embeddings[i],
			Metadata: map[string]interface{}{
				"filename": filename,
				"keywords": KeywordString(c.Keywords),
			},
			ChunkIndex: i,
		}
	}

	for i := 0; i < len(vectorChunks); i += storeBatchSize {
		end := i + storeBatchSize
		if end > len(vectorChunks) {
			end = len(vectorChunks)
		}
		if err := s.vectorRepo.StoreChunks(ctx, s.collection, vectorChunks[i:end]); err != nil {
			return 0, fmt.Errorf("failed to store chunks %d-%d: %w", i, end, err)
		}
	}

	s.logger.Printf("[%s] Stored %d chunks in collection %q", documentID, len(vectorChunks), s.collection)
	return len(vectorChunks), nil
}

// ProcessJob handles one queued ingest job, called by the background worker
func (s *DocumentService) ProcessJob(ctx context.Context, job *repositories.Job) error {
	if job.Type != repositories.JobTypeDocumentIngest {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}

	documentID, _ := job.Payload["document_id"].(string)
	filename, _ := job.Payload["filename"].(string)
	filePath, _ := job.Payload["file_path"].(string)
	if documentID == "" || filePath == "" {
		return fmt.Errorf("job %s has incomplete payload", job.ID)
	}

	doc, err := s.docRepo.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	doc.Status = repositories.DocumentStatusProcessing
	doc.UpdatedAt = time.Now()
	_ = s.docRepo.Update(ctx, doc)

	content, err := os.ReadFile(filePath)
	if err != nil {
		s.failDocument(ctx, doc, err)
		return fmt.Errorf("failed to read uploaded file: %w", err)
	}

	chunkCount, err := s.Ingest(ctx, documentID, filename, content)
	if err != nil {
		s.failDocument(ctx, doc, err)
		return err
	}

	doc.Status = repositories.DocumentStatusReady
	doc.ChunkCount = chunkCount
	doc.UpdatedAt = time.Now()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Printf("[%s] Failed to update document status: %v", documentID, err)
	}

	if err := s.sessionRepo.SetRetrievalDefault(ctx, true); err != nil {
		s.logger.Printf("Failed to enable retrieval default: %v", err)
	}
	s.retrieval.InvalidateCache()
	os.Remove(filePath)

	job.Result = map[string]interface{}{
		"document_id": documentID,
		"chunk_count": chunkCount,
	}
	return nil
}

func (s *DocumentService) failDocument(ctx context.Context, doc *repositories.Document, cause error) {
	doc.Status = repositories.DocumentStatusFailed
	doc.Error = cause.Error()
	doc.UpdatedAt = time.Now()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Printf("[%s] Failed to mark document failed: %v", doc.ID, err)
	}
}

// ListDocuments returns all registered documents, newest first
func (s *DocumentService) ListDocuments(ctx context.Context) ([]*repositories.Document, error) {
	return s.docRepo.List(ctx)
}

// GetDocument retrieves document metadata
func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*repositories.Document, error) {
	return s.docRepo.Get(ctx, documentID)
}

// DeleteDocument removes one document's chunks and its registry entry.
// When the last document goes, stored sessions fall back to plain chat.
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID string) error {
	doc, err := s.docRepo.Get(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.vectorRepo.DeleteDocumentChunks(ctx, s.collection, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.retrieval.InvalidateCache()

	count, err := s.docRepo.CountReady(ctx)
	if err == nil && count == 0 {
		if err := s.sessionRepo.SetRetrievalDefault(ctx, false); err != nil {
			s.logger.Printf("Failed to disable retrieval default: %v", err)
		}
	}

	s.logger.Printf("Deleted document %s (%s)", documentID, doc.Filename)
	return nil
}

// ClearDatabase wipes the vector collection and the document registry.
// Chat histories survive, retrieval toggles turn off.
func (s *DocumentService) ClearDatabase(ctx context.Context) error {
	if err := s.vectorRepo.ResetCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	if err := s.docRepo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear document registry: %w", err)
	}
	if err := s.sessionRepo.SetRetrievalDefault(ctx, false); err != nil {
		s.logger.Printf("Failed to disable retrieval default: %v", err)
	}
	s.retrieval.InvalidateCache()

	s.logger.Printf("Cleared vector database and document registry")
	return nil
}

// JobStatus returns a queued ingest job for progress polling
func (s *DocumentService) JobStatus(ctx context.Context, jobID string) (*repositories.Job, error) {
	return s.jobRepo.GetJob(ctx, jobID)
}
