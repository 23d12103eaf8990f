package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// noopValkeyCache is a process-local fallback satisfying Valkey when the
// external cache is unavailable. Locks and counters are only meaningful
// within a single replica; data is lost on restart.
type noopValkeyCache struct {
	mu     sync.RWMutex
	m      map[string]noopEntry
	logger logger.Logger
}

type noopEntry struct {
	data    []byte
	n       int64
	expires time.Time
}

func NewNoopValkey(log logger.Logger) Valkey {
	log.Warn("Valkey cache unavailable; using in-memory fallback")
	return &noopValkeyCache{m: make(map[string]noopEntry), logger: log}
}

func (n *noopValkeyCache) Get(_ context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.m[key]
	if !ok || n.expired(e) {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return e.data, nil
}

func (n *noopValkeyCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		jb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b = jb
	}
	n.mu.Lock()
	n.m[key] = noopEntry{data: b, expires: expiry(ttl)}
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) Delete(_ context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.m[key]
	if !ok || n.expired(e) {
		e = noopEntry{expires: expiry(ttl)}
	}
	e.n++
	n.m[key] = e
	return e.n, nil
}

func (n *noopValkeyCache) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	k := "lock:" + key
	if e, ok := n.m[k]; ok && !n.expired(e) {
		return false, nil
	}
	n.m[k] = noopEntry{expires: expiry(ttl)}
	return true, nil
}

func (n *noopValkeyCache) ReleaseLock(_ context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, "lock:"+key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) HealthCheck(_ context.Context) error { return nil }

func (n *noopValkeyCache) expired(e noopEntry) bool {
	return !e.expires.IsZero() && time.Now().After(e.expires)
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
