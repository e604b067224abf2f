package presence

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayusman/skelid/internal/monitoring"
)

// DefaultRedisKey is the key and channel the mirror writes to.
const DefaultRedisKey = "skelid:presence"

// ConnectRedis returns a client for addr, or nil when addr is empty.
func ConnectRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// RedisMirror copies the recognized name into Redis so other processes can
// read it (GET key) or follow it (SUBSCRIBE key).
type RedisMirror struct {
	client  *redis.Client
	key     string
	timeout time.Duration

	wg sync.WaitGroup

	// seq numbers changes as they happen. mu serializes writes, and written
	// drops a change that lost the race to a newer one.
	seq     atomic.Uint64
	mu      sync.Mutex
	written uint64
}

// NewRedisMirror creates a mirror writing to key. An empty key uses
// DefaultRedisKey.
func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisMirror{client: client, key: key, timeout: 2 * time.Second}
}

// Key returns the key and channel name in use.
func (m *RedisMirror) Key() string {
	return m.key
}

// Publish stores the new name under the key and publishes the change as JSON
// on the channel of the same name.
func (m *RedisMirror) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}

	_, err = m.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, m.key, c.Name, 0)
		p.Publish(ctx, m.key, payload)
		return nil
	})
	return err
}

// Attach registers the mirror as a change listener on t. Changes are
// written in the background so a slow or unreachable Redis never holds up
// the tracker.
func (m *RedisMirror) Attach(t *Tracker) {
	t.OnChange(m.publishAsync)
}

func (m *RedisMirror) publishAsync(c Change) {
	seq := m.seq.Add(1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.mu.Lock()
		defer m.mu.Unlock()
		if seq < m.written {
			return
		}
		m.written = seq

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.Publish(ctx, c); err != nil {
			monitoring.Logf("redis publish error: %v", err)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (m *RedisMirror) Wait() {
	m.wg.Wait()
}
