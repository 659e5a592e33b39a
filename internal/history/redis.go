package history

import (
	"context"
	"encoding/json"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"chat-relay/internal/llm"
)

const (
	// Sliding window of persisted messages per conversation.
	maxMessages = 10
	// Each save refreshes the entry lifetime.
	entryTTL = 3600 * time.Second

	connectTimeout = 3 * time.Second
)

// Connect dials the configured store URL. Any problem (unset URL, bad scheme,
// unreachable server) degrades to a nil client so the bot runs stateless.
func Connect(url string) *redis.Client {
	if url == "" {
		log.Printf("REDIS_URL not set, conversation history will not be stored")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("invalid REDIS_URL (expected redis:// or rediss://): %v", err)
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("failed to connect to redis: %v", err)
		client.Close()
		return nil
	}
	return client
}

// kv is the slice of the redis API the store uses; a seam for tests.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type RedisStore struct {
	client kv
}

// New wraps a connected redis client, or falls back to NullStore when the
// client is nil.
func New(client *redis.Client) Store {
	if client == nil {
		return NullStore{}
	}
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key Key) []llm.Message {
	raw, err := s.client.Get(ctx, key.String()).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("failed to load history for %s: %v", key, err)
		return nil
	}
	var msgs []llm.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		log.Printf("failed to decode history for %s: %v", key, err)
		return nil
	}
	return msgs
}

func (s *RedisStore) Save(ctx context.Context, key Key, messages []llm.Message) {
	if len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		log.Printf("failed to encode history for %s: %v", key, err)
		return
	}
	if err := s.client.Set(ctx, key.String(), raw, entryTTL).Err(); err != nil {
		log.Printf("failed to save history for %s: %v", key, err)
	}
}
