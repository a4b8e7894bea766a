package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hybrid-rag/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	sessionIndexKey  = "sessions:index"
	sessionTTL       = 24 * time.Hour
)

// RedisSessionRepository implements SessionRepository using Redis
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a new Redis-based session store
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Create stores a new session
func (r *RedisSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	if err := session.Validate(); err != nil {
		return err
	}

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	return r.write(ctx, session, "create")
}

// Get retrieves a session by ID
func (r *RedisSessionRepository) Get(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, SessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, NewSessionRepositoryError("get", sessionID, err, "")
	}

	var session models.ChatSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, NewSessionRepositoryError("get", sessionID, err, "failed to unmarshal session")
	}

	return &session, nil
}

// Save overwrites a stored session
func (r *RedisSessionRepository) Save(ctx context.Context, session *models.ChatSession) error {
	if err := session.Validate(); err != nil {
		return err
	}
	return r.write(ctx, session, "save")
}

// Delete removes a session
func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	pipe.SRem(ctx, sessionIndexKey, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewSessionRepositoryError("delete", sessionID, err, "")
	}
	return nil
}

// SetRetrievalDefault flips UseVectorDB on every stored session
func (r *RedisSessionRepository) SetRetrievalDefault(ctx context.Context, enabled bool) error {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return NewSessionRepositoryError("set_retrieval_default", "", err, "")
	}

	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if err != nil {
			// Expired sessions linger in the index until swept
			r.client.SRem(ctx, sessionIndexKey, id)
			continue
		}
		session.UseVectorDB = enabled
		if err := r.write(ctx, session, "set_retrieval_default"); err != nil {
			return err
		}
	}

	return nil
}

// Ping checks if Redis is alive
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSessionRepository) write(ctx context.Context, session *models.ChatSession, operation string) error {
	session.UpdatedAt = time.Now()

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return NewSessionRepositoryError(operation, session.ID, err, "failed to marshal session")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, sessionJSON, sessionTTL)
	pipe.SAdd(ctx, sessionIndexKey, session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewSessionRepositoryError(operation, session.ID, err, "")
	}

	return nil
}
