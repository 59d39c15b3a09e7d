package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	redisadapter "github.com/robertarktes/event-registrations/internal/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu    sync.Mutex
	data  map[string]redisadapter.IdempResponse
	locks map[string]bool
	ttl   time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string]redisadapter.IdempResponse{}, locks: map[string]bool{}}
}

func (f *fakeBackend) Get(_ context.Context, key string) (*redisadapter.IdempResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = resp
	f.ttl = ttl
	return nil
}

func (f *fakeBackend) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[key] {
		return false, nil
	}
	f.locks[key] = true
	return true, nil
}

func (f *fakeBackend) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, key)
	return nil
}

func TestIdempotency_RecordAndReplay(t *testing.T) {
	backend := newFakeBackend()
	idem := NewIdempotency(backend, time.Hour)
	ctx := context.Background()
	key := Scope("POST", "/payment-success", "", "k1", []byte(`{"ticketId":"VTX-1"}`))

	got, err := idem.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, release, err := idem.Begin(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	again, _, err := idem.Begin(ctx, key)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, idem.Set(ctx, key, Response{Status: 201, ContentType: "application/json", Result: []byte(`{}`)}))
	release()

	got, err = idem.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, &Response{Status: 201, ContentType: "application/json", Result: []byte(`{}`)}, got)
	assert.Equal(t, time.Hour, backend.ttl)

	ok, _, err = idem.Begin(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScope_SeparatesRoutes(t *testing.T) {
	assert.NotEqual(t, Scope("POST", "/register", "", "k", nil), Scope("POST", "/create-order", "", "k", nil))
}

func TestScope_SeparatesSubjectsAndBodies(t *testing.T) {
	base := Scope("POST", "/admin/verify-payment", "admin-1", "k", []byte(`{"action":"approve"}`))
	assert.Equal(t, base, Scope("POST", "/admin/verify-payment", "admin-1", "k", []byte(`{"action":"approve"}`)))
	assert.NotEqual(t, base, Scope("POST", "/admin/verify-payment", "", "k", []byte(`{"action":"approve"}`)))
	assert.NotEqual(t, base, Scope("POST", "/admin/verify-payment", "admin-2", "k", []byte(`{"action":"approve"}`)))
	assert.NotEqual(t, base, Scope("POST", "/admin/verify-payment", "admin-1", "k", []byte(`{"action":"reject"}`)))
}
