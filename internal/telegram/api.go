package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

func (s botAPISender) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	return s.api.GetFile(cfg)
}
