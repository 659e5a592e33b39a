package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const completionTimeout = 60 * time.Second

// OpenAI talks to two OpenAI-compatible endpoints: the text endpoint (xAI)
// for chat completions and image generation, and api.openai.com for
// gpt-image-1 generation/editing.
type OpenAI struct {
	text  *openai.Client
	image *openai.Client

	model       string
	textAPIKey  string
	textBaseURL string
	httpClient  *http.Client
}

func New(textAPIKey, textBaseURL, model, imageAPIKey string) *OpenAI {
	c := &OpenAI{
		model:       model,
		textAPIKey:  textAPIKey,
		textBaseURL: textBaseURL,
		httpClient:  &http.Client{},
	}
	if textAPIKey != "" {
		config := openai.DefaultConfig(textAPIKey)
		if textBaseURL != "" {
			config.BaseURL = textBaseURL
		}
		c.text = openai.NewClientWithConfig(config)
	}
	if imageAPIKey != "" {
		c.image = openai.NewClient(imageAPIKey)
	}
	return c
}

func (c *OpenAI) Complete(ctx context.Context, messages []Message) (Result, error) {
	if c.text == nil {
		return Result{}, callErrorf(KindAuthMissing, "GROK_API_KEY is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.text.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: oaMsgs,
	})
	if err != nil {
		return Result{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, callErrorf(KindEmptyResponse, "no choices in completion response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		content = "No response content"
	}
	return Result{Text: content}, nil
}

// classify folds the heterogeneous SDK/transport error shapes into CallError.
func classify(err error) *CallError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return callErrorf(KindHTTPStatus, "HTTP %d: %v", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return callErrorf(KindHTTPStatus, "HTTP %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
		}
		return callErrorf(KindNetworkFailure, "Network error: %T - %v", reqErr.Err, reqErr.Err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return callErrorf(KindNetworkFailure, "Network error: %T - %v", err, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return callErrorf(KindNetworkFailure, "Network error: %T - %v", err, err)
	}
	return callErrorf(KindUnexpected, "Unexpected error: %T - %v", err, err)
}
