package history

import (
	"context"
	"fmt"

	"chat-relay/internal/llm"
)

// Key identifies one logical conversation: a chat plus an optional forum
// topic within it.
type Key struct {
	ChatID   int64
	ThreadID int
}

func (k Key) String() string {
	if k.ThreadID != 0 {
		return fmt.Sprintf("chat:%d:%d", k.ChatID, k.ThreadID)
	}
	return fmt.Sprintf("chat:%d:main", k.ChatID)
}

// Store is a remote expiring map from conversation key to recent messages.
// Load never fails: an unreachable store reads as empty history. Save
// failures are logged and swallowed; the conversation continues stateless.
type Store interface {
	Load(ctx context.Context, key Key) []llm.Message
	Save(ctx context.Context, key Key, messages []llm.Message)
}

// NullStore keeps nothing. Used when no store is configured or reachable.
type NullStore struct{}

func (NullStore) Load(context.Context, Key) []llm.Message  { return nil }
func (NullStore) Save(context.Context, Key, []llm.Message) {}
