package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

const (
	// Telegram rejects messages longer than this.
	maxReplyChars = 4096
	// Push a progressive edit after this many new characters.
	streamFlushChars = 50
)

// CompleteStream runs a streaming chat completion and feeds the growing reply
// through sink. The wire reader is hand-rolled: the endpoint has been observed
// to emit both proper SSE frames and bare JSON lines, and the SDK stream
// reader only copes with the former. Frame payloads are still decoded as
// openai.ChatCompletionStreamResponse.
func (c *OpenAI) CompleteStream(ctx context.Context, messages []Message, sink StreamSink) (Result, error) {
	if c.textAPIKey == "" {
		return Result{}, callErrorf(KindAuthMissing, "GROK_API_KEY is not set")
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	payload, err := json.Marshal(openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: oaMsgs,
		Stream:   true,
	})
	if err != nil {
		return Result{}, callErrorf(KindUnexpected, "Unexpected error: %T - %v", err, err)
	}

	url := strings.TrimSuffix(c.textBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, callErrorf(KindUnexpected, "Unexpected error: %T - %v", err, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.textAPIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, callErrorf(KindNetworkFailure, "Network error: %T - %v", err, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, callErrorf(KindHTTPStatus, "HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := consumeStream(resp.Body, sink)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text}, nil
}

// consumeStream accumulates delta content from a stream of completion chunks,
// flushing through sink per streamFlushChars and once more at the end.
// Malformed chunks are logged and skipped; only transport errors abort.
func consumeStream(r io.Reader, sink StreamSink) (string, error) {
	var acc strings.Builder
	lastFlush := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		payload, ok := streamPayload(scanner.Text())
		if !ok {
			continue
		}
		if payload == "[DONE]" {
			break
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			log.Printf("skipping malformed stream chunk: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if acc.Len() < maxReplyChars {
			acc.WriteString(delta)
		}

		// First content right away, then per interval, then once at the cap.
		n := min(acc.Len(), maxReplyChars)
		if lastFlush == 0 || n-lastFlush >= streamFlushChars || (n >= maxReplyChars && lastFlush < maxReplyChars) {
			if sink != nil {
				sink(capReply(acc.String()), false)
			}
			lastFlush = n
		}
	}
	if err := scanner.Err(); err != nil {
		return "", callErrorf(KindNetworkFailure, "Network error: %T - %v", err, err)
	}

	if acc.Len() == 0 {
		return "", callErrorf(KindEmptyResponse, "stream produced no content")
	}
	final := capReply(acc.String())
	if sink != nil {
		sink(final, true)
	}
	return final, nil
}

// streamPayload extracts the JSON payload from one stream line. Handles both
// SSE "data:" frames and bare JSON lines; "event:" markers, comments and
// keep-alive blanks carry no payload.
func streamPayload(line string) (string, bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return "", false
	case strings.HasPrefix(line, "event:"), strings.HasPrefix(line, ":"):
		return "", false
	case strings.HasPrefix(line, "data:"):
		return strings.TrimSpace(line[len("data:"):]), true
	default:
		return line, true
	}
}

// capReply truncates to the platform ceiling without splitting a rune;
// Telegram rejects invalid UTF-8 outright.
func capReply(s string) string {
	if len(s) <= maxReplyChars {
		return s
	}
	s = s[:maxReplyChars]
	for len(s) > 0 {
		if r, size := utf8.DecodeLastRuneInString(s); r == utf8.RuneError && size == 1 {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	return s
}
