package repositories

import (
	"context"
)

// VectorRepository defines the interface for vector database operations.
// This abstracts ChromaDB and allows for easy testing and implementation swapping.
type VectorRepository interface {
	// Collection Management
	EnsureCollection(ctx context.Context, name string) error
	ResetCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Chunk Operations
	StoreChunks(ctx context.Context, collectionName string, chunks []*Chunk) error
	SearchChunks(ctx context.Context, collectionName string, queryEmbedding []float32, topK int) ([]*SearchResult, error)
	DeleteDocumentChunks(ctx context.Context, collectionName string, documentID string) error
	CountChunks(ctx context.Context, collectionName string) (int, error)

	// Health
	Ping(ctx context.Context) error
}

// Chunk represents a text chunk with embedding and metadata
type Chunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Text       string                 `json:"text"`
	Embedding  []float32              `json:"embedding"`
	Metadata   map[string]interface{} `json:"metadata"`
	ChunkIndex int                    `json:"chunk_index"`
}

// SearchResult represents a single result from vector similarity search
type SearchResult struct {
	ChunkID    string                 `json:"chunk_id"`
	DocumentID string                 `json:"document_id"`
	Text       string                 `json:"text"`
	Score      float32                `json:"score"` // Similarity score (0-1, higher is better)
	Distance   float32                `json:"distance"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// VectorRepositoryError represents errors from the vector repository
type VectorRepositoryError struct {
	Operation string
	Err       error
	Message   string
}

func (e *VectorRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *VectorRepositoryError) Unwrap() error {
	return e.Err
}

// NewVectorRepositoryError creates a new vector repository error
func NewVectorRepositoryError(operation string, err error, message string) *VectorRepositoryError {
	return &VectorRepositoryError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}

// CollectionNotFoundError reports a missing collection
func CollectionNotFoundError(name string) error {
	return NewVectorRepositoryError("get_collection", nil, "collection not found: "+name)
}
