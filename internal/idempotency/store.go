// Package idempotency lets clients retry order placement safely. A request
// carrying an Idempotency-Key header runs at most once per key; later
// requests with the same key get the stored response back.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix     = "storefront:idempotency:"
	pendingMarker = "pending:"
)

var (
	// ErrInProgress is returned by Begin while another request holds the key.
	ErrInProgress = errors.New("request with this idempotency key is in progress")

	// ErrFingerprintMismatch is returned by Begin when the key is held or was
	// completed by a request with a different body.
	ErrFingerprintMismatch = errors.New("idempotency key was used with a different request")
)

// Record is a stored response.
type Record struct {
	RequestHash string `json:"requestHash"`
	StatusCode  int    `json:"statusCode"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Store reserves keys and keeps completed responses.
type Store interface {
	// Begin reserves key for a request with the given fingerprint. It returns
	// (nil, nil) when the caller now owns the key, the stored record when the
	// key was already completed by the same request, ErrInProgress when
	// another request with the same fingerprint holds it, and
	// ErrFingerprintMismatch when the key belongs to a different request.
	Begin(ctx context.Context, key, fingerprint string) (*Record, error)

	// Complete stores the response for key.
	Complete(ctx context.Context, key string, rec Record) error

	// Release frees key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// redisStore implements Store with SET NX reservations.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisClient parses url and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisStore creates a Redis-backed store. Keys and records expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) Store {
	return &redisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "idempotency").Logger(),
	}
}

func (s *redisStore) Begin(ctx context.Context, key, fingerprint string) (*Record, error) {
	// A key released or expired between SET NX and GET is reserved again once.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker+fingerprint, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}

		val, err := s.client.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			s.logger.Debug().Str("key", key).Msg("idempotency key vanished before read, reserving again")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		}

		return decodeEntry(val, fingerprint)
	}

	return nil, ErrInProgress
}

func decodeEntry(val, fingerprint string) (*Record, error) {
	if owner, ok := strings.CutPrefix(val, pendingMarker); ok {
		if owner != fingerprint {
			return nil, ErrFingerprintMismatch
		}
		return nil, ErrInProgress
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	if rec.RequestHash != fingerprint {
		return nil, ErrFingerprintMismatch
	}

	return &rec, nil
}

func (s *redisStore) Complete(ctx context.Context, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}

	return nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
