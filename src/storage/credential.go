package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	// Credential is the upload target handed out by b2_get_upload_url.
	Credential struct {
		UploadURL string    `json:"upload_url"`
		AuthToken string    `json:"auth_token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	// CredentialCache holds at most one Credential. Load reports false when
	// nothing is stored; callers check expiry themselves.
	CredentialCache interface {
		Load(ctx context.Context) (Credential, bool, error)
		Store(ctx context.Context, cred Credential) error
		Invalidate(ctx context.Context) error
	}

	MemoryCache struct {
		mu   sync.RWMutex
		cred Credential
		set  bool
	}

	// RedisCache shares the credential between processes, so a restarted
	// instance does not repeat the authorization handshake.
	RedisCache struct {
		client *redis.Client
		key    string
		now    func() time.Time
	}
)

func (c Credential) Valid(now time.Time) bool {
	return c.UploadURL != "" && now.Before(c.ExpiresAt)
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Load(ctx context.Context) (Credential, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred, m.set, nil
}

func (m *MemoryCache) Store(ctx context.Context, cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
	m.set = true
	return nil
}

func (m *MemoryCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = Credential{}
	m.set = false
	return nil
}

func NewRedisCache(client *redis.Client, key string) *RedisCache {
	return &RedisCache{
		client: client,
		key:    key,
		now:    time.Now,
	}
}

func (r *RedisCache) Load(ctx context.Context) (Credential, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("failed to get key %s: %w", r.key, err)
	}

	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Credential{}, false, fmt.Errorf("decode cached credential: %w", err)
	}
	return cred, true, nil
}

func (r *RedisCache) Store(ctx context.Context, cred Credential) error {
	ttl := cred.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Invalidate(ctx)
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", r.key, err)
	}
	return nil
}
