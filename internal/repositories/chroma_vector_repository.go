package repositories

import (
	"context"
	"strings"

	"hybrid-rag/internal/db"
)

// ChromaVectorRepository implements VectorRepository using ChromaDB
type ChromaVectorRepository struct {
	client *db.ChromaClient
}

// NewChromaVectorRepository creates a new ChromaDB-backed vector repository
func NewChromaVectorRepository(client *db.ChromaClient) VectorRepository {
	return &ChromaVectorRepository{client: client}
}

// EnsureCollection creates the collection if it does not already exist
func (r *ChromaVectorRepository) EnsureCollection(ctx context.Context, name string) error {
	if _, err := r.client.CreateCollection(ctx, name, nil); err != nil {
		return NewVectorRepositoryError("ensure_collection", err, "failed to create collection: "+name)
	}
	return nil
}

// ResetCollection drops the collection and recreates it empty
func (r *ChromaVectorRepository) ResetCollection(ctx context.Context, name string) error {
	exists, err := r.CollectionExists(ctx, name)
	if err != nil {
		return NewVectorRepositoryError("reset_collection", err, "")
	}
	if exists {
		if err := r.client.DeleteCollection(ctx, name); err != nil {
			return NewVectorRepositoryError("reset_collection", err, "failed to delete collection: "+name)
		}
	}
	return r.EnsureCollection(ctx, name)
}

// CollectionExists checks whether a collection with the given name exists
func (r *ChromaVectorRepository) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := r.client.GetCollection(ctx, name)
	if err != nil {
		if strings.Contains(err.Error(), "status 404") {
			return false, nil
		}
		return false, NewVectorRepositoryError("collection_exists", err, "")
	}
	return true, nil
}

// StoreChunks stores embedded chunks in a collection
func (r *ChromaVectorRepository) StoreChunks(ctx context.Context, collectionName string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))

	for i, chunk := range chunks {
		ids[i] = chunk.ID
		documents[i] = chunk.Text
		embeddings[i] = chunk.Embedding

		metadata := make(map[string]interface{}, len(chunk.Metadata)+2)
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		metadata["document_id"] = chunk.DocumentID
		metadata["chunk_index"] = chunk.ChunkIndex
		metadatas[i] = metadata
	}

	if err := r.client.AddRecords(ctx, collectionName, ids, documents, embeddings, metadatas); err != nil {
		return NewVectorRepositoryError("store_chunks", err, "")
	}
	return nil
}

// SearchChunks runs a top-k similarity search against a collection
func (r *ChromaVectorRepository) SearchChunks(ctx context.Context, collectionName string, queryEmbedding []float32, topK int) ([]*SearchResult, error) {
	resp, err := r.client.Query(ctx, collectionName, queryEmbedding, topK, nil)
	if err != nil {
		return nil, NewVectorRepositoryError("search_chunks", err, "")
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	// Single query embedding, so only the first result group matters
	results := make([]*SearchResult, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		result := &SearchResult{ChunkID: id}

		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			result.Text = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			result.Distance = resp.Distances[0][i]
			// Cosine distance to similarity
			result.Score = 1 - result.Distance
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			result.Metadata = resp.Metadatas[0][i]
			if docID, ok := result.Metadata["document_id"].(string); ok {
				result.DocumentID = docID
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// DeleteDocumentChunks removes all chunks belonging to a document
func (r *ChromaVectorRepository) DeleteDocumentChunks(ctx context.Context, collectionName string, documentID string) error {
	where := map[string]interface{}{"document_id": documentID}
	if err := r.client.DeleteRecords(ctx, collectionName, where); err != nil {
		return NewVectorRepositoryError("delete_document_chunks", err, "")
	}
	return nil
}

// CountChunks returns the number of stored chunks in a collection
func (r *ChromaVectorRepository) CountChunks(ctx context.Context, collectionName string) (int, error) {
	count, err := r.client.CountRecords(ctx, collectionName)
	if err != nil {
		return 0, NewVectorRepositoryError("count_chunks", err, "")
	}
	return count, nil
}

// Ping checks if the vector database is reachable
func (r *ChromaVectorRepository) Ping(ctx context.Context) error {
	return r.client.Heartbeat(ctx)
}
