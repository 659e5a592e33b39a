package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/history"
	"chat-relay/internal/llm"
	"chat-relay/internal/lock"
)

// Telegram's hard ceiling on message text length.
const maxMessageLen = 4096

const notAuthorizedReply = "Sorry, you are not authorized to use this bot."

type editLocker interface {
	Acquire(ctx context.Context) bool
	Release(ctx context.Context)
}

// Bot holds every collaborator a handler needs. It is built once at startup
// and carries no mutable state of its own; all conversation state lives in
// the history store.
type Bot struct {
	api      sender
	authSvc  *auth.Service
	asm      *history.Assembler
	provider llm.Client
	editLock editLocker

	token    string
	username string
	stream   bool

	httpClient *http.Client
}

func New(api *tgbotapi.BotAPI, cfg *config.Config, authSvc *auth.Service, asm *history.Assembler, provider llm.Client, editLock *lock.EditLock) *Bot {
	return newBot(botAPISender{api: api}, cfg, authSvc, asm, provider, editLock)
}

func newBot(api sender, cfg *config.Config, authSvc *auth.Service, asm *history.Assembler, provider llm.Client, editLock editLocker) *Bot {
	return &Bot{
		api:        api,
		authSvc:    authSvc,
		asm:        asm,
		provider:   provider,
		editLock:   editLock,
		token:      cfg.TelegramBotToken,
		username:   cfg.BotUsername,
		stream:     cfg.StreamReplies,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// authorized gates a handler on the allow-list, replying with the fixed
// denial message on failure.
func (b *Bot) authorized(u Update) bool {
	msg := u.Message
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	if b.authSvc.IsAuthorized(msg.Chat.ID, userID) {
		return true
	}
	log.Printf("unauthorized access attempt: chat_id=%d, user_id=%d", msg.Chat.ID, userID)
	b.reply(u, notAuthorizedReply)
	return false
}

// reply sends text to the originating chat. Inside a forum topic the reply
// references the triggering message so it lands in the right thread.
func (b *Bot) reply(u Update, text string) {
	if _, err := b.send(u, text); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

func (b *Bot) send(u Update, text string) (tgbotapi.Message, error) {
	out := tgbotapi.NewMessage(u.Message.Chat.ID, truncateMessage(text))
	if u.ThreadID != 0 {
		out.ReplyToMessageID = u.Message.MessageID
	}
	return b.api.Send(out)
}

func (b *Bot) sendPhoto(u Update, file tgbotapi.RequestFileData) error {
	out := tgbotapi.NewPhoto(u.Message.Chat.ID, file)
	if u.ThreadID != 0 {
		out.ReplyToMessageID = u.Message.MessageID
	}
	_, err := b.api.Send(out)
	return err
}

// truncateMessage enforces the platform ceiling without splitting a rune;
// the API rejects invalid UTF-8 text.
func truncateMessage(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	text = text[:maxMessageLen]
	for len(text) > 0 {
		if r, size := utf8.DecodeLastRuneInString(text); r == utf8.RuneError && size == 1 {
			text = text[:len(text)-1]
			continue
		}
		break
	}
	return text
}

func (b *Bot) downloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
