package telegram

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update wraps the SDK update with the forum topic id. The v5 SDK predates
// forum topics, so the thread id is decoded from the raw payload separately
// and used only for conversation keying and reply routing.
type Update struct {
	tgbotapi.Update
	ThreadID int
}

func decodeUpdate(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u.Update); err != nil {
		return Update{}, err
	}
	var sidecar struct {
		Message *struct {
			MessageThreadID int `json:"message_thread_id"`
		} `json:"message"`
	}
	if err := json.Unmarshal(data, &sidecar); err == nil && sidecar.Message != nil {
		u.ThreadID = sidecar.Message.MessageThreadID
	}
	return u, nil
}

// WebhookHandler serves the single inbound endpoint. The update is processed
// within the request; the platform retries on a 5xx, so a handler panic maps
// to 500 while a handled update always answers 200.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic while handling update: %v", rec)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("failed to read webhook body: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		u, err := decodeUpdate(body)
		if err != nil {
			log.Printf("invalid update payload: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		b.HandleUpdate(r.Context(), u)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			log.Printf("failed to write webhook response: %v", err)
		}
	}
}
