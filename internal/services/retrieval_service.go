package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/repositories"
)

// DefaultTopK is the number of chunks retrieved per query
const DefaultTopK = 4

// MaxTopK bounds how many chunks a single retrieval may request
const MaxTopK = 25

// Retriever fetches context chunks relevant to a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.ContextChunk, error)
}

// RetrievalService embeds queries and searches the vector store for
// relevant document chunks
type RetrievalService struct {
	embedder   EmbedderInterface
	vectorRepo repositories.VectorRepository
	collection string
	logger     *log.Logger
	cache      *retrievalCache
}

// NewRetrievalService creates a retrieval service over the given collection
func NewRetrievalService(
	embedder EmbedderInterface,
	vectorRepo repositories.VectorRepository,
	collection string,
	logger *log.Logger,
) *RetrievalService {
	return &RetrievalService{
		embedder:   embedder,
		vectorRepo: vectorRepo,
		collection: collection,
		logger:     logger,
		cache:      newRetrievalCache(2 * time.Minute),
	}
}

// Retrieve embeds the query and returns the most similar chunks
func (s *RetrievalService) Retrieve(ctx context.Context, query string, topK int) ([]models.ContextChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	if cached := s.cache.Get(query, topK); cached != nil {
		s.logger.Printf("Retrieval cache hit for query (topK=%d)", topK)
		return cached, nil
	}

	embedStart := time.Now()
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	embedTime := time.Since(embedStart).Seconds() * 1000

	searchStart := time.Now()
	results, err := s.vectorRepo.SearchChunks(ctx, s.collection, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	searchTime := time.Since(searchStart).Seconds() * 1000

	s.logger.Printf("Retrieved %d chunks (embed: %.2fms, search: %.2fms)",
		len(results), embedTime, searchTime)

	chunks := make([]models.ContextChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, models.ContextChunk{
			Text:     r.Text,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}

	s.cache.Set(query, topK, chunks)
	return chunks, nil
}

// InvalidateCache drops cached retrievals, called after the document set changes
func (s *RetrievalService) InvalidateCache() {
	s.cache.Clear()
}

type retrievalCache struct {
	mu      sync.Mutex
	entries map[string]*retrievalCacheEntry
	ttl     time.Duration
}

type retrievalCacheEntry struct {
	chunks    []models.ContextChunk
	expiresAt time.Time
}

func newRetrievalCache(ttl time.Duration) *retrievalCache {
	return &retrievalCache{
		entries: make(map[string]*retrievalCacheEntry),
		ttl:     ttl,
	}
}

func (c *retrievalCache) key(query string, topK int) string {
	return fmt.Sprintf("%d:%s", topK, query)
}

func (c *retrievalCache) Get(query string, topK int) []models.ContextChunk {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[c.key(query, topK)]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.chunks
}

func (c *retrievalCache) Set(query string, topK int, chunks []models.ContextChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.key(query, topK)] = &retrievalCacheEntry{
		chunks:    chunks,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *retrievalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*retrievalCacheEntry)
}
