// Package session manages the ephemeral authenticated sessions of guardia:
// a Redis-backed token store and the activity tracker that expires sessions
// lazily after Config.Auth.MaxInactivity of idle time. Sessions are owned by
// the request-handling layer and never persisted beyond Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erickdv/guardia/internal/apperror"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// Session is the value stored under a session token. LastActivity is nil
// until the first authenticated request after login stamps it.
type Session struct {
	Username     string     `json:"username"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// Store keeps sessions in Redis, JSON-encoded under "session:<token>", with
// an absolute TTL independent of activity.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a session store with the given absolute session lifetime.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Create generates a random token and stores a fresh session for the user.
// LastActivity starts absent; the tracker stamps it on the first request.
func (s *Store) Create(ctx context.Context, username string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating session token: %w", err))
	}

	sess := Session{
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("marshaling session: %w", err))
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("storing session: %w", err))
	}

	return token, nil
}

// Get looks up a session token. Returns apperror.Unauthorized when the token
// is unknown (expired, destroyed, or never issued).
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("Sesión inválida o expirada.")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session: %w", err))
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}

	return &sess, nil
}

// Save writes the session back under the same token, preserving whatever
// absolute TTL remains on the key.
func (s *Store) Save(ctx context.Context, token string, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshaling session: %w", err))
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, data, redis.KeepTTL).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing session: %w", err))
	}

	return nil
}

// Destroy removes a session so its token can never be used again.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session: %w", err))
	}
	return nil
}

// generateToken creates a cryptographically random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
