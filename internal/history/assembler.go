package history

import (
	"context"

	"chat-relay/internal/llm"
)

// The platform rejects messages longer than 4096 characters, so every text
// call carries this one-shot directive. It is never persisted.
const lengthDirective = "Your maximum output is 4096 characters."

// Assembler builds the message list for a provider call and writes the
// resulting turn back afterwards. Concurrent turns on the same key can race
// each other's load-save cycle; losing an occasional turn is accepted.
type Assembler struct {
	store Store
}

func NewAssembler(store Store) *Assembler {
	return &Assembler{store: store}
}

// PrepareTurn loads the stored history and appends the new user message plus
// the ephemeral length directive. The returned base slice excludes the
// directive and is what CommitTurn later persists.
func (a *Assembler) PrepareTurn(ctx context.Context, key Key, userContent string) (msgs, base []llm.Message) {
	stored := a.store.Load(ctx, key)
	base = make([]llm.Message, 0, len(stored)+1)
	base = append(base, stored...)
	base = append(base, llm.Message{Role: llm.RoleUser, Content: userContent})

	msgs = make([]llm.Message, 0, len(base)+1)
	msgs = append(msgs, base...)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: lengthDirective})
	return msgs, base
}

// CommitTurn appends the assistant reply to the pre-directive history and
// persists it. It runs on failed provider calls too, with the error
// description as the assistant content, so later turns keep the context that
// an attempt failed.
func (a *Assembler) CommitTurn(ctx context.Context, key Key, base []llm.Message, assistantContent string) {
	a.store.Save(ctx, key, append(base, llm.Message{Role: llm.RoleAssistant, Content: assistantContent}))
}

// Record persists one complete exchange on top of the stored history, used by
// the image flows where the provider call takes no conversation context.
func (a *Assembler) Record(ctx context.Context, key Key, userContent, assistantContent string) {
	h := a.store.Load(ctx, key)
	h = append(h, llm.Message{Role: llm.RoleUser, Content: userContent})
	h = append(h, llm.Message{Role: llm.RoleAssistant, Content: assistantContent})
	a.store.Save(ctx, key, h)
}
