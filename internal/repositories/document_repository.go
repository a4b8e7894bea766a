package repositories

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DocumentRepository defines the interface for the document registry.
// This abstracts Redis operations for uploaded-document metadata.
type DocumentRepository interface {
	Register(ctx context.Context, doc *Document) error
	Get(ctx context.Context, documentID string) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, documentID string) error
	Exists(ctx context.Context, documentID string) (bool, error)

	// CountReady returns the number of documents fully ingested into the
	// vector store. This drives the retrieval-toggle invariant.
	CountReady(ctx context.Context) (int, error)

	// Clear empties the registry. Paired with a vector collection reset.
	Clear(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}

// Document represents an uploaded document in the registry
type Document struct {
	ID         string                 `json:"document_id"`
	Filename   string                 `json:"filename"`
	FileSize   int64                  `json:"file_size,omitempty"`
	ChunkCount int                    `json:"chunk_count"`
	Status     DocumentStatus         `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// DocumentStatus represents the ingestion state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// IsValid checks if the document status is known
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the document status
func (s DocumentStatus) String() string {
	return string(s)
}

// Validate checks if the document is valid
func (d *Document) Validate() error {
	if d.ID == "" {
		return InvalidDocumentError("", "document ID is required")
	}
	if d.Filename == "" {
		return InvalidDocumentError(d.ID, "filename is required")
	}
	if d.ChunkCount < 0 {
		return InvalidDocumentError(d.ID, "chunk count cannot be negative")
	}
	if !d.Status.IsValid() {
		return InvalidDocumentError(d.ID, "invalid status: "+string(d.Status))
	}
	return nil
}

// DocumentRepositoryError represents errors from the document registry
type DocumentRepositoryError struct {
	Operation  string
	DocumentID string
	Err        error
	Message    string
}

func (e *DocumentRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.DocumentID != "" {
		prefix += " (doc: " + e.DocumentID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *DocumentRepositoryError) Unwrap() error {
	return e.Err
}

// NewDocumentRepositoryError creates a new document repository error
func NewDocumentRepositoryError(operation string, documentID string, err error, message string) *DocumentRepositoryError {
	return &DocumentRepositoryError{
		Operation:  operation,
		DocumentID: documentID,
		Err:        err,
		Message:    message,
	}
}

// DocumentNotFoundError reports a missing registry entry
func DocumentNotFoundError(documentID string) error {
	return NewDocumentRepositoryError("get_document", documentID, nil, "document not found: "+documentID)
}

// IsDocumentNotFound reports whether err is a missing-document error
func IsDocumentNotFound(err error) bool {
	var repoErr *DocumentRepositoryError
	return errors.As(err, &repoErr) && strings.Contains(repoErr.Message, "not found")
}

// DocumentAlreadyExistsError reports a duplicate registration
func DocumentAlreadyExistsError(documentID string) error {
	return NewDocumentRepositoryError("register_document", documentID, nil, "document already exists: "+documentID)
}

// InvalidDocumentError reports a document that failed validation
func InvalidDocumentError(documentID string, reason string) error {
	return NewDocumentRepositoryError("validate_document", documentID, nil, "invalid document: "+reason)
}
