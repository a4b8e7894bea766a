package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChromaClient wraps HTTP calls to the ChromaDB v2 API.
// The raw HTTP surface avoids version skew with the official client library.
type ChromaClient struct {
	hostPort   string
	baseURL    string
	httpClient *http.Client
}

// ChromaConfig holds configuration for the ChromaDB connection
type ChromaConfig struct {
	Host     string
	Port     int
	Tenant   string // default: "default_tenant"
	Database string // default: "default_database"
	Timeout  time.Duration
}

// Collection represents a ChromaDB collection
type Collection struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata"`
}

// QueryResult represents the response from a similarity query.
// Results come back grouped per query embedding.
type QueryResult struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float32                `json:"distances"`
}

// NewChromaClient creates a ChromaDB v2 client
func NewChromaClient(config ChromaConfig) *ChromaClient {
	if config.Tenant == "" {
		config.Tenant = "default_tenant"
	}
	if config.Database == "" {
		config.Database = "default_database"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	hostPort := fmt.Sprintf("%s:%d", config.Host, config.Port)

	return &ChromaClient{
		hostPort: hostPort,
		baseURL: fmt.Sprintf("http://%s/api/v2/tenants/%s/databases/%s",
			hostPort, config.Tenant, config.Database),
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// do issues a request against the client's database scope and decodes the
// JSON response into out when out is non-nil.
func (c *ChromaClient) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed (status %d): %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Heartbeat checks if ChromaDB is alive. The heartbeat endpoint is global,
// not scoped to a tenant or database.
func (c *ChromaClient) Heartbeat(ctx context.Context) error {
	url := fmt.Sprintf("http://%s/api/v2/heartbeat", c.hostPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create heartbeat request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("heartbeat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat failed with status: %d", resp.StatusCode)
	}

	return nil
}

// CreateCollection creates a collection, returning the existing one if the
// name is already taken.
func (c *ChromaClient) CreateCollection(ctx context.Context, name string, metadata map[string]interface{}) (*Collection, error) {
	if metadata == nil {
		metadata = map[string]interface{}{"hnsw:space": "cosine"}
	}

	payload := map[string]interface{}{
		"name":          name,
		"metadata":      metadata,
		"get_or_create": true,
	}

	var collection Collection
	if err := c.do(ctx, http.MethodPost, "/collections", payload, &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

// GetCollection retrieves a collection by name
func (c *ChromaClient) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var collection Collection
	if err := c.do(ctx, http.MethodGet, "/collections/"+name, nil, &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

// DeleteCollection deletes a collection and all its contents
func (c *ChromaClient) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
}

// CountRecords returns the number of embedded records in a collection
func (c *ChromaClient) CountRecords(ctx context.Context, collectionName string) (int, error) {
	collection, err := c.GetCollection(ctx, collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}

	var count int
	if err := c.do(ctx, http.MethodGet, "/collections/"+collection.ID+"/count", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// AddRecords stores embedded chunks in a collection
func (c *ChromaClient) AddRecords(ctx context.Context, collectionName string, ids []string, documents []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	collection, err := c.GetCollection(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("failed to get collection: %w", err)
	}

	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
	}
	if metadatas != nil {
		payload["metadatas"] = metadatas
	}

	return c.do(ctx, http.MethodPost, "/collections/"+collection.ID+"/add", payload, nil)
}

// Query runs a nearest-neighbor search against a collection
func (c *ChromaClient) Query(ctx context.Context, collectionName string, queryEmbedding []float32, nResults int, where map[string]interface{}) (*QueryResult, error) {
	collection, err := c.GetCollection(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	payload := map[string]interface{}{
		"query_embeddings": [][]float32{queryEmbedding},
		"n_results":        nResults,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(where) > 0 {
		payload["where"] = where
	}

	var result QueryResult
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection.ID+"/query", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteRecords deletes records matching a metadata filter
func (c *ChromaClient) DeleteRecords(ctx context.Context, collectionName string, where map[string]interface{}) error {
	collection, err := c.GetCollection(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("failed to get collection: %w", err)
	}

	payload := map[string]interface{}{"where": where}
	return c.do(ctx, http.MethodPost, "/collections/"+collection.ID+"/delete", payload, nil)
}
