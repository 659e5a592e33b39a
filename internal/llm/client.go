package llm

import (
	"context"
	"fmt"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the single normalized shape every provider call produces.
// Exactly one of Text, ImageURL or ImageBytes is populated on success.
type Result struct {
	Text          string
	ImageURL      string
	RevisedPrompt string
	ImageBytes    []byte
}

type ErrorKind string

const (
	KindAuthMissing    ErrorKind = "auth_missing"
	KindHTTPStatus     ErrorKind = "http_status"
	KindNetworkFailure ErrorKind = "network_failure"
	KindEmptyResponse  ErrorKind = "empty_response"
	KindUnexpected     ErrorKind = "unexpected"
)

// CallError is the error arm of the provider result union. The message is
// user-presentable as-is.
type CallError struct {
	Kind    ErrorKind
	Message string
}

func (e *CallError) Error() string { return e.Message }

func callErrorf(kind ErrorKind, format string, args ...any) *CallError {
	return &CallError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StreamSink receives the accumulated reply text as it grows. It fires after
// every flush interval and exactly once more with final=true when the stream
// has ended.
type StreamSink func(accumulated string, final bool)

type Client interface {
	Complete(ctx context.Context, messages []Message) (Result, error)
	CompleteStream(ctx context.Context, messages []Message, sink StreamSink) (Result, error)
	GenerateImageURL(ctx context.Context, prompt string) (Result, error)
	GenerateImageBytes(ctx context.Context, prompt, quality string) (Result, error)
	EditImage(ctx context.Context, image []byte, prompt, quality string) (Result, error)
}
