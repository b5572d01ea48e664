package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a device-local key/value area, the server-side stand-in for the
// app's on-device storage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend hands out one Store per device.
type Backend interface {
	Scope(deviceID string) Store
}

// MemoryBackend keeps every device's slots in one process-local map.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

// Scope returns the store for deviceID.
func (b *MemoryBackend) Scope(deviceID string) Store {
	return &memoryStore{b: b, prefix: deviceID + ":"}
}

type memoryStore struct {
	b      *MemoryBackend
	prefix string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	v, ok := s.b.data[s.prefix+key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.data[s.prefix+key] = value
	return nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.data, s.prefix+key)
	return nil
}

// RedisBackend stores slots as plain Redis keys under a per-device prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend keys slots as "<prefix>:<device>:<key>". A zero ttl keeps keys forever.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "crewlog:device"
	}
	return &RedisBackend{client: client, prefix: strings.TrimSuffix(prefix, ":"), ttl: ttl}
}

// Scope returns the store for deviceID.
func (b *RedisBackend) Scope(deviceID string) Store {
	return &redisStore{client: b.client, prefix: b.prefix + ":" + deviceID + ":", ttl: b.ttl}
}

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
