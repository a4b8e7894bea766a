package services

import (
	"context"
	"log"
	"sync"
	"time"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/repositories"
)

// DefaultCollection is the vector collection backing the chat application
const DefaultCollection = "documents"

// StoreStateProvider is the read side of the document store state
type StoreStateProvider interface {
	State(ctx context.Context) models.DocumentStoreState
	Ready() bool
}

// StoreManager owns the vector database readiness lifecycle. Setup runs in
// the background; callers observe state through State, WaitReady, or the
// notification channel rather than polling the database themselves.
type StoreManager struct {
	vectorRepo repositories.VectorRepository
	docRepo    repositories.DocumentRepository
	collection string
	logger     *log.Logger

	mu        sync.RWMutex
	status    models.StoreStatus
	lastError string
	updatedAt time.Time
	readyCh   chan struct{}
	running   bool
}

// NewStoreManager creates a store manager in the not-ready state
func NewStoreManager(vectorRepo repositories.VectorRepository, docRepo repositories.DocumentRepository, collection string, logger *log.Logger) *StoreManager {
	if collection == "" {
		collection = DefaultCollection
	}
	return &StoreManager{
		vectorRepo: vectorRepo,
		docRepo:    docRepo,
		collection: collection,
		logger:     logger,
		status:     models.StoreStatusNotReady,
		updatedAt:  time.Now(),
		readyCh:    make(chan struct{}),
	}
}

// Collection returns the backing collection name
func (m *StoreManager) Collection() string {
	return m.collection
}

// Setup starts vector database initialization in the background. It is safe
// to call more than once: calls while initialization is running or after it
// succeeded are no-ops, and a failed attempt re-arms so the user can retry.
// The background goroutine outlives the caller, so it runs on a context
// detached from request cancellation.
func (m *StoreManager) Setup(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.status == models.StoreStatusReady {
		return
	}
	if m.status == models.StoreStatusError {
		m.status = models.StoreStatusNotReady
		m.lastError = ""
		m.updatedAt = time.Now()
	}
	m.running = true

	go m.initialize(context.WithoutCancel(ctx))
}

func (m *StoreManager) initialize(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.logger.Println("Setting up RAG backend, warming up the vector database...")

	// The database container may still be starting; retry the heartbeat
	// before declaring an error.
	var pingErr error
	for attempt := 0; attempt < 30; attempt++ {
		if pingErr = m.vectorRepo.Ping(ctx); pingErr == nil {
			break
		}
		select {
		case <-ctx.Done():
			m.setError(ctx.Err().Error())
			return
		case <-time.After(2 * time.Second):
		}
	}
	if pingErr != nil {
		m.logger.Printf("Vector database never became reachable: %v", pingErr)
		m.setError(pingErr.Error())
		return
	}

	if err := m.vectorRepo.EnsureCollection(ctx, m.collection); err != nil {
		m.logger.Printf("Failed to create collection %q: %v", m.collection, err)
		m.setError(err.Error())
		return
	}

	m.mu.Lock()
	m.status = models.StoreStatusReady
	m.lastError = ""
	m.updatedAt = time.Now()
	close(m.readyCh)
	m.mu.Unlock()

	m.logger.Println("Vector database is ready")
}

func (m *StoreManager) setError(message string) {
	m.mu.Lock()
	m.status = models.StoreStatusError
	m.lastError = message
	m.updatedAt = time.Now()
	m.mu.Unlock()
}

// Ready reports whether the vector database finished initializing
func (m *StoreManager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status == models.StoreStatusReady
}

// WaitReady blocks until the store is ready or the context is cancelled
func (m *StoreManager) WaitReady(ctx context.Context) error {
	m.mu.RLock()
	ch := m.readyCh
	m.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the externally visible store state, including the number of
// fully ingested documents
func (m *StoreManager) State(ctx context.Context) models.DocumentStoreState {
	m.mu.RLock()
	state := models.DocumentStoreState{
		Status:    m.status,
		LastError: m.lastError,
		UpdatedAt: m.updatedAt,
	}
	m.mu.RUnlock()

	if count, err := m.docRepo.CountReady(ctx); err == nil {
		state.DocumentCount = count
	} else {
		m.logger.Printf("Failed to count documents: %v", err)
	}

	return state
}
