package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	documentKeyPrefix = "document:"
	documentIndexKey  = "documents:index"
)

// RedisDocumentRepository implements DocumentRepository using Redis
type RedisDocumentRepository struct {
	client *redis.Client
}

// NewRedisDocumentRepository creates a new Redis-based document registry
func NewRedisDocumentRepository(client *redis.Client) *RedisDocumentRepository {
	return &RedisDocumentRepository{client: client}
}

// Register stores a new document in the registry
func (r *RedisDocumentRepository) Register(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	exists, err := r.Exists(ctx, doc.ID)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "")
	}
	if exists {
		return DocumentAlreadyExistsError(doc.ID)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "failed to marshal document")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, documentKeyPrefix+doc.ID, docJSON, 0)
	pipe.SAdd(ctx, documentIndexKey, doc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "")
	}

	return nil
}

// Get retrieves a document by ID
func (r *RedisDocumentRepository) Get(ctx context.Context, documentID string) (*Document, error) {
	data, err := r.client.Get(ctx, documentKeyPrefix+documentID).Result()
	if err == redis.Nil {
		return nil, DocumentNotFoundError(documentID)
	}
	if err != nil {
		return nil, NewDocumentRepositoryError("get", documentID, err, "")
	}

	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, NewDocumentRepositoryError("get", documentID, err, "failed to unmarshal document")
	}

	return &doc, nil
}

// List returns all registered documents, newest first
func (r *RedisDocumentRepository) List(ctx context.Context) ([]*Document, error) {
	ids, err := r.client.SMembers(ctx, documentIndexKey).Result()
	if err != nil {
		return nil, NewDocumentRepositoryError("list", "", err, "")
	}

	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Get(ctx, id)
		if err != nil {
			// Index may momentarily reference a deleted document
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return docs, nil
}

// Update overwrites the stored document
func (r *RedisDocumentRepository) Update(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	exists, err := r.Exists(ctx, doc.ID)
	if err != nil {
		return NewDocumentRepositoryError("update", doc.ID, err, "")
	}
	if !exists {
		return DocumentNotFoundError(doc.ID)
	}

	doc.UpdatedAt = time.Now()

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return NewDocumentRepositoryError("update", doc.ID, err, "failed to marshal document")
	}

	if err := r.client.Set(ctx, documentKeyPrefix+doc.ID, docJSON, 0).Err(); err != nil {
		return NewDocumentRepositoryError("update", doc.ID, err, "")
	}

	return nil
}

// Delete removes a document from the registry
func (r *RedisDocumentRepository) Delete(ctx context.Context, documentID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, documentKeyPrefix+documentID)
	pipe.SRem(ctx, documentIndexKey, documentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewDocumentRepositoryError("delete", documentID, err, "")
	}
	return nil
}

// Exists checks if a document is registered
func (r *RedisDocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	n, err := r.client.Exists(ctx, documentKeyPrefix+documentID).Result()
	if err != nil {
		return false, NewDocumentRepositoryError("exists", documentID, err, "")
	}
	return n > 0, nil
}

// CountReady returns the number of fully ingested documents
func (r *RedisDocumentRepository) CountReady(ctx context.Context) (int, error) {
	docs, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, doc := range docs {
		if doc.Status == DocumentStatusReady {
			count++
		}
	}
	return count, nil
}

// Clear empties the registry
func (r *RedisDocumentRepository) Clear(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, documentIndexKey).Result()
	if err != nil {
		return NewDocumentRepositoryError("clear", "", err, "")
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, documentKeyPrefix+id)
	}
	pipe.Del(ctx, documentIndexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewDocumentRepositoryError("clear", "", err, "")
	}

	return nil
}

// Ping checks if Redis is alive
func (r *RedisDocumentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
