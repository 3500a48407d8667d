package pricingclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates the key is absent, expired or unreadable.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded indicates the storage refused a write for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Storage is a persistent key/value store owned by the client.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryStorage keeps values in memory with a byte quota. A quota of zero
// means unlimited.
type MemoryStorage struct {
	mu    sync.Mutex
	quota int
	used  int
	data  map[string][]byte
}

// NewMemoryStorage creates a memory storage limited to quota bytes.
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{quota: quota, data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.used - len(s.data[key]) + len(value)
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, used, s.quota)
	}
	s.data[key] = append([]byte(nil), value...)
	s.used = used
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used -= len(s.data[key])
	delete(s.data, key)
	return nil
}

func (s *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// FileStorage keeps one file per key under a directory, with a byte quota
// over all files. A quota of zero means unlimited.
type FileStorage struct {
	mu    sync.Mutex
	dir   string
	quota int64
}

const fileSuffix = ".json"

// NewFileStorage creates dir if needed and returns a storage rooted there.
func NewFileStorage(dir string, quota int64) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStorage{dir: dir, quota: quota}, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileSuffix)
}

func (s *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if s.quota > 0 {
		used, err := s.usage()
		if err != nil {
			return err
		}
		if info, err := os.Stat(path); err == nil {
			used -= info.Size()
		}
		if used+int64(len(value)) > s.quota {
			return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, used+int64(len(value)), s.quota)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func (s *FileStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (s *FileStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		keys = append(keys, string(raw))
	}
	sort.Strings(keys)
	return keys, nil
}

// usage sums the size of all cache files. s.mu must be held.
func (s *FileStorage) usage() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list cache dir: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// RedisStorage keeps values in Redis under a key prefix. A Redis OOM reply
// is reported as ErrQuotaExceeded.
type RedisStorage struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStorage creates a storage on redisClient. Keys are namespaced by prefix.
func NewRedisStorage(redisClient *redis.Client, prefix string) *RedisStorage {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStorage{redis: redisClient, prefix: prefix}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		if strings.HasPrefix(err.Error(), "OOM") {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
