package telegram

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chat-relay/internal/history"
	"chat-relay/internal/llm"
)

const (
	startReply = "Hello! I'm a Grok-powered assistant. Use /ask <your question> to get a response, or just send a message in private chat."

	askUsageReply = "Please provide a question after /ask (e.g., /ask What is the capital of France?)"

	streamPlaceholder = "..."
)

var commandRe = regexp.MustCompile(`(?i)^/(start|ask|generate|draw|gooddraw|edit|goodedit)(@\S+)?(\s|$)`)

// parseCommand splits a leading bot command off text. A mention suffix only
// matches when it names this bot; commands addressed to other bots don't
// parse.
func parseCommand(text, username string) (cmd, args string, ok bool) {
	m := commandRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	if m[2] != "" && !strings.EqualFold(m[2], "@"+username) {
		return "", "", false
	}
	return strings.ToLower(m[1]), strings.TrimSpace(text[len(m[0]):]), true
}

// HandleUpdate routes one inbound update to its handler. Routing order:
// photo with an edit caption, then explicit commands, then any other
// non-command text as a plain query. Everything else is ignored.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) {
	msg := u.Message
	if msg == nil {
		log.Printf("update %d carries no message, ignoring", u.UpdateID)
		return
	}
	key := history.Key{ChatID: msg.Chat.ID, ThreadID: u.ThreadID}

	if len(msg.Photo) > 0 && msg.Caption != "" {
		if cmd, prompt, ok := parseCommand(msg.Caption, b.username); ok && (cmd == "edit" || cmd == "goodedit") {
			b.handleImageEdit(ctx, u, cmd, prompt)
		}
		return
	}

	text := msg.Text
	if text == "" {
		return
	}
	if cmd, args, ok := parseCommand(text, b.username); ok {
		switch cmd {
		case "start":
			b.handleStart(u)
		case "ask":
			b.handleTextQuery(ctx, u, key, args)
		case "generate", "draw", "gooddraw":
			b.handleImageGeneration(ctx, u, key, cmd, args)
		}
		return
	}
	if strings.HasPrefix(text, "/") {
		// unknown command or a command for another bot
		return
	}
	b.handleTextQuery(ctx, u, key, text)
}

func (b *Bot) handleStart(u Update) {
	if !b.authorized(u) {
		return
	}
	b.reply(u, startReply)
}

// handleTextQuery runs one conversational turn: history + user message +
// length directive to the provider, reply to the chat, updated history back
// to the store. The turn is committed on provider failure too, with the
// error description standing in for the assistant reply.
func (b *Bot) handleTextQuery(ctx context.Context, u Update, key history.Key, query string) {
	if !b.authorized(u) {
		return
	}
	if strings.TrimSpace(query) == "" {
		b.reply(u, askUsageReply)
		return
	}

	log.Printf("processing text query for %s: %q", key, query)
	msgs, base := b.asm.PrepareTurn(ctx, key, query)

	var text string
	if b.stream {
		text = b.streamedCompletion(ctx, u, msgs)
	} else {
		res, err := b.provider.Complete(ctx, msgs)
		if err != nil {
			text = "Error processing your request: " + err.Error()
		} else {
			text = res.Text
		}
		b.reply(u, text)
	}
	b.asm.CommitTurn(ctx, key, base, text)
}

// streamedCompletion sends a placeholder message and edits it in place as
// chunks arrive, so the user watches the reply grow. Returns the text that
// was finally delivered (the error description on failure).
func (b *Bot) streamedCompletion(ctx context.Context, u Update, msgs []llm.Message) string {
	placeholder, perr := b.send(u, streamPlaceholder)
	if perr != nil {
		log.Printf("failed to send stream placeholder: %v", perr)
	}
	edit := func(text string) {
		if perr != nil {
			return
		}
		e := tgbotapi.NewEditMessageText(u.Message.Chat.ID, placeholder.MessageID, text)
		if _, err := b.api.Send(e); err != nil {
			log.Printf("failed to edit streamed reply: %v", err)
		}
	}

	res, err := b.provider.CompleteStream(ctx, msgs, func(acc string, final bool) {
		edit(acc)
	})
	if err != nil {
		text := "Error processing your request: " + err.Error()
		if perr == nil {
			edit(text)
		} else {
			b.reply(u, text)
		}
		return text
	}
	if perr != nil {
		// no placeholder to edit, deliver in one piece
		b.reply(u, res.Text)
	}
	return res.Text
}

func (b *Bot) handleImageGeneration(ctx context.Context, u Update, key history.Key, mode, prompt string) {
	if !b.authorized(u) {
		return
	}
	if prompt == "" {
		b.reply(u, fmt.Sprintf("Please provide a description after /%s (e.g., /%s A cat in a tree)", mode, mode))
		return
	}

	if mode == "generate" {
		res, err := b.provider.GenerateImageURL(ctx, prompt)
		if err != nil {
			b.reply(u, "Error generating image: "+err.Error())
			return
		}
		log.Printf("generated image for %s, url: %s", key, res.ImageURL)
		b.asm.Record(ctx, key, "/generate "+prompt,
			fmt.Sprintf("Generated image: %s (Revised prompt: %s)", res.ImageURL, res.RevisedPrompt))
		if err := b.sendPhoto(u, tgbotapi.FileURL(res.ImageURL)); err != nil {
			log.Printf("failed to send photo: %v", err)
		}
		return
	}

	quality := "low"
	if mode == "gooddraw" {
		quality = "auto"
	}
	res, err := b.provider.GenerateImageBytes(ctx, prompt, quality)
	if err != nil {
		b.reply(u, "Error generating image: "+err.Error())
		return
	}
	b.asm.Record(ctx, key, "/"+mode+" "+prompt, "Generated image with prompt: "+prompt)
	if err := b.sendPhoto(u, tgbotapi.FileBytes{Name: "image.png", Bytes: res.ImageBytes}); err != nil {
		log.Printf("failed to send photo: %v", err)
	}
}

// handleImageEdit rewrites an attached photo per the caption instructions.
// At most one edit runs at a time process-wide; a second concurrent edit is
// dropped with a log line only. When several photo sizes are attached the
// largest rendition of the first photo wins.
func (b *Bot) handleImageEdit(ctx context.Context, u Update, mode, prompt string) {
	if !b.authorized(u) {
		return
	}
	if prompt == "" {
		b.reply(u, fmt.Sprintf("Please provide instructions in the caption after /%s (e.g., /%s Make it snow)", mode, mode))
		return
	}

	if !b.editLock.Acquire(ctx) {
		log.Printf("another edit is in progress, skipping this request")
		return
	}
	defer b.editLock.Release(ctx)

	msg := u.Message
	photo := msg.Photo[len(msg.Photo)-1]
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: photo.FileID})
	if err != nil {
		b.reply(u, "Error editing image: "+err.Error())
		return
	}
	data, err := b.downloadFile(ctx, file.Link(b.token))
	if err != nil {
		b.reply(u, "Error editing image: "+err.Error())
		return
	}

	quality := "low"
	if mode == "goodedit" {
		quality = "auto"
	}
	res, err := b.provider.EditImage(ctx, data, prompt, quality)
	if err != nil {
		b.reply(u, "Error editing image: "+err.Error())
		return
	}
	if err := b.sendPhoto(u, tgbotapi.FileBytes{Name: "image.png", Bytes: res.ImageBytes}); err != nil {
		log.Printf("failed to send photo: %v", err)
	}
}
