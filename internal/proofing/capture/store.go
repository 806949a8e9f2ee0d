// Package capture implements the durable handoff record bridging a
// synchronous request and an asynchronous proofing job. The store is the
// only channel between the worker that writes a result and the later poll
// that reads it.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound reports a session that never existed or has expired.
	ErrNotFound = errors.New("capture session not found")
	// ErrResultAlreadyStored reports a second result write against the same
	// session. A programming error, never a silent overwrite.
	ErrResultAlreadyStored = errors.New("capture session result already stored")
)

// Session is one capture record.
type Session struct {
	ID          string
	UserID      string
	RequestedAt time.Time
	PII         models.Applicant
	Result      *models.VerificationResult
}

// Store is the Redis-backed capture session store. Sessions expire after the
// configured TTL whether or not a result ever arrives; expiry is what turns
// a stuck job into a caller-side timeout.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{rdb: rdb, ttl: ttl, logger: log}
}

func sessionKey(id string) string {
	return "idv:capture:" + id
}

// Create allocates a new session owned by the given user and returns its ID.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	key := sessionKey(id)

	if err := s.rdb.HSet(ctx, key,
		"user_id", userID,
		"requested_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return "", fmt.Errorf("create capture session: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("expire capture session: %w", err)
	}

	return id, nil
}

// StorePII records the applicant snapshot captured at submission time.
func (s *Store) StorePII(ctx context.Context, id string, applicant models.Applicant) error {
	key := sessionKey(id)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("store capture pii: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	data, err := json.Marshal(applicant)
	if err != nil {
		return fmt.Errorf("marshal applicant: %w", err)
	}
	if err := s.rdb.HSet(ctx, key, "pii", data).Err(); err != nil {
		return fmt.Errorf("store capture pii: %w", err)
	}
	return nil
}

// StoreResult records the worker's verification outcome. Single-writer and
// write-once: a second write is rejected with ErrResultAlreadyStored.
func (s *Store) StoreResult(ctx context.Context, id string, result *models.VerificationResult) error {
	key := sessionKey(id)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("store capture result: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	set, err := s.rdb.HSetNX(ctx, key, "result", data).Result()
	if err != nil {
		return fmt.Errorf("store capture result: %w", err)
	}
	if !set {
		s.logger.Error("duplicate capture result write rejected", map[string]interface{}{
			"sessionId": id,
		})
		return ErrResultAlreadyStored
	}
	return nil
}

// Lookup loads the session, returning ErrNotFound once it has been evicted.
func (s *Store) Lookup(ctx context.Context, id string) (*Session, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup capture session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	sess := &Session{ID: id, UserID: fields["user_id"]}

	if ts := fields["requested_at"]; ts != "" {
		if at, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			sess.RequestedAt = at
		}
	}
	if raw := fields["pii"]; raw != "" {
		var pii models.Applicant
		if err := json.Unmarshal([]byte(raw), &pii); err != nil {
			return nil, fmt.Errorf("decode capture pii: %w", err)
		}
		sess.PII = pii
	}
	if raw := fields["result"]; raw != "" {
		var result models.VerificationResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("decode capture result: %w", err)
		}
		sess.Result = &result
	}

	return sess, nil
}
