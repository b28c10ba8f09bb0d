// Package idempotency makes client retries of POST requests safe. The first
// response for an Idempotency-Key is stored and replayed to later requests
// carrying the same key.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Header is the request header carrying the client's key.
const Header = "Idempotency-Key"

// ReplayedHeader is set on replayed responses.
const ReplayedHeader = "Idempotent-Replayed"

const processing = "processing"

// maxHashedBody bounds how much of a request body is read for the
// fingerprint. Handlers reject larger bodies on their own.
const maxHashedBody = 1 << 20

// ErrInProgress is returned by Begin while another request holds the key.
var ErrInProgress = errors.New("idempotency: request in progress")

// Response is a stored HTTP response. RequestHash fingerprints the request
// body it answered.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash,omitempty"`
}

// Store records keys and their responses.
type Store interface {
	// Begin claims key. It returns (nil, nil) when the caller now owns the
	// key, the stored response when one exists, or ErrInProgress.
	Begin(ctx context.Context, key string) (*Response, error)
	Save(ctx context.Context, key string, resp Response) error
	Release(ctx context.Context, key string) error
}

// RedisStore keeps keys in Redis with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(key string) string { return fmt.Sprintf("idem:%s", key) }

func (s *RedisStore) Begin(ctx context.Context, key string) (*Response, error) {
	ok, err := s.rdb.SetNX(ctx, redisKey(key), processing, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	b, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; treat as in progress and let the client retry.
			return nil, ErrInProgress
		}
		return nil, err
	}
	if string(b) == processing {
		return nil, ErrInProgress
	}
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &resp, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKey(key), b, s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, redisKey(key)).Err()
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// hashBody fingerprints the request body and puts the bytes it read back in
// front of the rest.
func hashBody(r *http.Request) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxHashedBody))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(b), r.Body), r.Body}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Middleware replays stored responses for POST requests that carry an
// Idempotency-Key. A key reused with a different body is refused with 422.
// Responses with a 5xx status are not stored, so the client may retry them.
// When the store is unreachable requests pass through.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(Header)
			if r.Method != http.MethodPost || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.URL.Path + ":" + clientKey
			ctx := r.Context()

			hash, err := hashBody(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation", "could not read request body")
				return
			}

			stored, err := store.Begin(ctx, key)
			switch {
			case errors.Is(err, ErrInProgress):
				writeError(w, http.StatusConflict, "duplicate", "a request with this Idempotency-Key is still in progress")
				return
			case err != nil:
				log.Warn().Err(err).Str("key", key).Msg("idempotency store unavailable")
				next.ServeHTTP(w, r)
				return
			case stored != nil && stored.RequestHash != "" && stored.RequestHash != hash:
				writeError(w, http.StatusUnprocessableEntity, "idempotency_key_reused",
					"this Idempotency-Key was already used with a different request body")
				return
			case stored != nil:
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// The request context may already be cancelled once the handler returns.
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Release(saveCtx, key); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("release idempotency key")
				}
				return
			}
			resp := Response{
				Status:      status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				RequestHash: hash,
			}
			if err := store.Save(saveCtx, key, resp); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("save idempotent response")
			}
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
