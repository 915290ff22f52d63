package a2a

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConversationStore holds the accumulated request text for each thread.
// Implementations must be safe for concurrent use; concurrent writes to the
// same thread resolve last-writer-wins.
type ConversationStore interface {
	// Get returns the accumulated text for a thread and whether it exists.
	Get(ctx context.Context, threadID string) (string, bool, error)

	// Set replaces the accumulated text for a thread.
	Set(ctx context.Context, threadID string, text string) error
}

const defaultMaxThreads = 1024

// MemoryStore is an in-process ConversationStore with an LRU bound on the
// number of tracked threads.
type MemoryStore struct {
	mu         sync.Mutex
	maxThreads int
	threads    map[string]*list.Element
	order      *list.List
}

type threadEntry struct {
	id   string
	text string
}

// NewMemoryStore creates a MemoryStore. maxThreads <= 0 selects the default
// bound of 1024 threads.
func NewMemoryStore(maxThreads int) *MemoryStore {
	if maxThreads <= 0 {
		maxThreads = defaultMaxThreads
	}
	return &MemoryStore{
		maxThreads: maxThreads,
		threads:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get implements ConversationStore.
func (s *MemoryStore) Get(ctx context.Context, threadID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.threads[threadID]
	if !ok {
		return "", false, nil
	}
	s.order.MoveToFront(el)
	return el.Value.(*threadEntry).text, true, nil
}

// Set implements ConversationStore.
func (s *MemoryStore) Set(ctx context.Context, threadID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.threads[threadID]; ok {
		el.Value.(*threadEntry).text = text
		s.order.MoveToFront(el)
		return nil
	}
	s.threads[threadID] = s.order.PushFront(&threadEntry{id: threadID, text: text})
	for len(s.threads) > s.maxThreads {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.threads, oldest.Value.(*threadEntry).id)
	}
	return nil
}

// Len returns the number of tracked threads.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// RedisStore is a ConversationStore backed by Redis, suitable for agents that
// run as multiple processes. Threads expire after TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore from an existing client. An empty prefix
// defaults to "agentstr:thread:"; ttl 0 means threads never expire.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "agentstr:thread:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements ConversationStore.
func (s *RedisStore) Get(ctx context.Context, threadID string) (string, bool, error) {
	text, err := s.client.Get(ctx, s.prefix+threadID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get thread %q: %w", threadID, err)
	}
	return text, true, nil
}

// Set implements ConversationStore.
func (s *RedisStore) Set(ctx context.Context, threadID string, text string) error {
	if err := s.client.Set(ctx, s.prefix+threadID, text, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set thread %q: %w", threadID, err)
	}
	return nil
}
