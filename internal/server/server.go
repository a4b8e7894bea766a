package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"hybrid-rag/internal/db"
	"hybrid-rag/internal/handlers"
	"hybrid-rag/internal/repositories"
	"hybrid-rag/internal/routes"
	"hybrid-rag/internal/services"
	"hybrid-rag/internal/workers"
)

// DefaultEmbeddingModel matches the retriever embedding microservice
const DefaultEmbeddingModel = "nvidia/nv-embedqa-e5-v5"

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewServer wires repositories, services, handlers, and workers into an
// http.Server. When Redis or ChromaDB is unreachable at startup the server
// still comes up with mode selection and health endpoints only.
func NewServer() *http.Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	inferenceService := services.NewInferenceService(logger)

	h := &routes.Handlers{
		Config: handlers.NewConfigHandler(inferenceService, logger),
	}
	healthDeps := map[string]handlers.Pinger{}

	redisClient, chromaClient := connectStores(logger)
	if redisClient != nil && chromaClient != nil {
		docRepo := repositories.NewRedisDocumentRepository(redisClient.GetClient())
		sessionRepo := repositories.NewRedisSessionRepository(redisClient.GetClient())
		jobRepo := repositories.NewRedisJobRepository(redisClient.GetClient())
		vectorRepo := repositories.NewChromaVectorRepository(chromaClient)

		healthDeps["redis"] = docRepo
		healthDeps["chromadb"] = vectorRepo

		embedder := newEmbeddingClient(logger)
		storeManager := services.NewStoreManager(vectorRepo, docRepo, getCollectionName(), logger)
		retrievalService := services.NewRetrievalService(embedder, vectorRepo, storeManager.Collection(), logger)
		sessionService := services.NewSessionService(sessionRepo, storeManager, logger)
		queryService := services.NewQueryService(inferenceService, retrievalService, sessionRepo, storeManager, logger)
		documentService := services.NewDocumentService(
			embedder, docRepo, vectorRepo, jobRepo, sessionRepo,
			storeManager, retrievalService, storeManager.Collection(), logger,
		)

		h.Store = handlers.NewStoreHandler(storeManager, logger)
		h.Session = handlers.NewSessionHandler(sessionService, logger)
		h.Query = handlers.NewQueryHandler(queryService, logger)
		h.Document = handlers.NewDocumentHandler(documentService, logger)

		go startIngestWorker(documentService, jobRepo, logger)

		logger.Println("RAG services initialized")
	} else {
		logger.Println("Redis or ChromaDB unavailable, serving mode selection and health only")
	}

	h.Health = handlers.NewHealthHandler(healthDeps, logger)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	return &http.Server{
		Addr:    addr,
		Handler: corsMiddleware(router),
	}
}

// connectStores dials Redis and ChromaDB. Either may be nil on failure.
func connectStores(logger *log.Logger) (*db.RedisClient, *db.ChromaClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisConfig := getRedisConfig()
	logger.Printf("Connecting to Redis: %s:%d (DB: %d)", redisConfig.Host, redisConfig.Port, redisConfig.DB)

	redisClient, err := db.NewRedisClient(redisConfig)
	if err != nil {
		logger.Printf("Failed to create Redis client: %v", err)
		return nil, nil
	}
	if err := redisClient.Ping(ctx); err != nil {
		logger.Printf("Redis connection failed: %v", err)
		logger.Println("Hint: docker run -d -p 6379:6379 redis:7-alpine")
		return nil, nil
	}
	logger.Println("Redis connected")

	chromaConfig := getChromaConfig()
	logger.Printf("Connecting to ChromaDB: %s:%d", chromaConfig.Host, chromaConfig.Port)

	chromaClient := db.NewChromaClient(chromaConfig)
	if err := chromaClient.Heartbeat(ctx); err != nil {
		// The store manager retries on setup; a slow ChromaDB start is fine
		logger.Printf("ChromaDB not reachable yet: %v", err)
	} else {
		logger.Println("ChromaDB connected")
	}

	return redisClient, chromaClient
}

func newEmbeddingClient(logger *log.Logger) *services.EmbeddingClient {
	baseURL := os.Getenv("EMBEDDING_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:9080/v1"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = DefaultEmbeddingModel
	}

	logger.Printf("Embedding service: %s (model: %s)", baseURL, model)
	return services.NewEmbeddingClient(baseURL, model)
}

// getRedisConfig reads Redis configuration from environment variables
func getRedisConfig() db.RedisConfig {
	config := db.DefaultRedisConfig()

	if host := os.Getenv("REDIS_HOST"); host != "" {
		config.Host = host
	}
	if portStr := os.Getenv("REDIS_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Port = port
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if dbNum, err := strconv.Atoi(dbStr); err == nil {
			config.DB = dbNum
		}
	}

	return config
}

// getCollectionName reads the vector collection name from the environment
func getCollectionName() string {
	if name := os.Getenv("CHROMA_COLLECTION"); name != "" {
		return name
	}
	return services.DefaultCollection
}

// getChromaConfig reads ChromaDB configuration from environment variables
func getChromaConfig() db.ChromaConfig {
	config := db.ChromaConfig{
		Host: "localhost",
		Port: 8000,
	}

	if host := os.Getenv("CHROMA_HOST"); host != "" {
		config.Host = host
	}
	if portStr := os.Getenv("CHROMA_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Port = port
		}
	}
	if tenant := os.Getenv("CHROMA_TENANT"); tenant != "" {
		config.Tenant = tenant
	}
	if database := os.Getenv("CHROMA_DATABASE"); database != "" {
		config.Database = database
	}

	return config
}

// startIngestWorker runs the background document-ingest worker
func startIngestWorker(documentService *services.DocumentService, jobRepo repositories.JobRepository, logger *log.Logger) {
	worker := workers.NewIngestWorker(workers.IngestWorkerConfig{
		WorkerConfig: workers.DefaultWorkerConfig("ingest-worker"),
		JobRepo:      jobRepo,
		Ingestor:     documentService,
		Logger:       &workerLogger{logger: logger},
	})

	if err := worker.Start(context.Background()); err != nil {
		logger.Printf("Failed to start ingest worker: %v", err)
		return
	}
	logger.Println("Ingest worker started")
}

// workerLogger adapts log.Logger to the workers.Logger interface
type workerLogger struct {
	logger *log.Logger
}

func (l *workerLogger) Info(msg string, args ...interface{}) {
	l.logger.Printf("[INFO] "+msg, args...)
}

func (l *workerLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("[ERROR] "+msg, args...)
}

func (l *workerLogger) Warn(msg string, args ...interface{}) {
	l.logger.Printf("[WARN] "+msg, args...)
}
