package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	redisadapter "github.com/robertarktes/event-registrations/internal/adapters/redis"
)

// Backend is the storage the replay cache runs on.
type Backend interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Idempotency struct {
	backend Backend
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotency(backend Backend, ttl time.Duration) *Idempotency {
	return &Idempotency{backend: backend, ttl: ttl, lockTTL: 30 * time.Second}
}

type Response struct {
	Status      int
	ContentType string
	Result      []byte
}

// Scope binds a client key to the route, the caller and the request body. A
// response is only replayed to the same subject sending the same payload.
func Scope(method, path, subject, key string, body []byte) string {
	sum := sha256.Sum256(body)
	return method + " " + path + " " + subject + " " + key + " " + hex.EncodeToString(sum[:])
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.backend.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, ContentType: stored.ContentType, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.backend.Set(ctx, key, redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
	}, i.ttl)
}

// Begin claims the key for the current request. The returned release must be
// called once the response has been recorded or abandoned.
func (i *Idempotency) Begin(ctx context.Context, key string) (bool, func(), error) {
	ok, err := i.backend.Lock(ctx, key, i.lockTTL)
	if err != nil || !ok {
		return false, func() {}, err
	}
	return true, func() { _ = i.backend.Unlock(context.WithoutCancel(ctx), key) }, nil
}
