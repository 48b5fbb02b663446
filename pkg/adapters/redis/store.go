// Package redis provides a Redis-backed state store and distributed locker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/flow"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.StateStore using Redis. Sessions are stored as JSON
// payloads under a key prefix, with a ZSET index holding expiry scores so
// List stays cheap.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "espalier:session:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Locker returns a distributed locker backed by the same client.
func (s *Store) Locker() *Locker {
	return NewLocker(s.client, "espalier:")
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the state to Redis.
func (s *Store) Save(ctx context.Context, sessionID string, st *flow.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)

	// Index score = expiry time; far-future when sessions never expire.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: sessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*flow.State, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, backend.Nil) {
		return nil, flow.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load from redis: %w", err)
	}

	var st flow.State
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

// Delete removes the state and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns the identifiers of live sessions. The index score is only a
// hint written at save time; the key's own TTL is authoritative, so every
// candidate is cross-checked for existence and stale index entries are
// pruned lazily here.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	_, err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", now)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to prune session index: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	pipe := s.client.Pipeline()
	checks := make([]*backend.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check session keys: %w", err)
	}

	live := make([]string, 0, len(ids))
	var dead []interface{}
	for i, id := range ids {
		if checks[i].Val() > 0 {
			live = append(live, id)
		} else {
			dead = append(dead, id)
		}
	}
	if len(dead) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), dead...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune session index: %w", err)
		}
	}
	return live, nil
}
