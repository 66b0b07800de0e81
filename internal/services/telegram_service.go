package services

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramService struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramService builds the bot client without calling getMe, so a
// missing network at boot does not stop the server. Returns nil without a token.
func NewTelegramService(botToken string) *TelegramService {
	if strings.TrimSpace(botToken) == "" {
		return nil
	}
	bot := &tgbotapi.BotAPI{
		Token:  botToken,
		Client: &http.Client{},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(tgbotapi.APIEndpoint)
	return &TelegramService{bot: bot}
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		log.Printf("[tg][skip] bot or chatID empty (chatID=%d)", chatID)
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", chatID, err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	log.Printf("[tg][send][ok] chatID=%d", chatID)
	return nil
}

// SendReplyKeyboard sends text with a persistent reply keyboard of the given button rows.
func (t *TelegramService) SendReplyKeyboard(chatID int64, text string, rows [][]string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		return nil
	}
	var kb [][]tgbotapi.KeyboardButton
	for _, row := range rows {
		var btns []tgbotapi.KeyboardButton
		for _, label := range row {
			btns = append(btns, tgbotapi.NewKeyboardButton(label))
		}
		kb = append(kb, tgbotapi.NewKeyboardButtonRow(btns...))
	}
	markup := tgbotapi.NewReplyKeyboard(kb...)
	markup.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][keyboard][err] chatID=%d: %v", chatID, err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// SetWebhook registers url with Telegram. Every update will then carry secret
// in the X-Telegram-Bot-Api-Secret-Token header.
func (t *TelegramService) SetWebhook(url, secret string) error {
	if t == nil || t.bot == nil || url == "" {
		return nil
	}
	// WebhookConfig in v5.5.1 has no secret_token field, so the call is built by hand
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := t.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("telegram setWebhook failed: %w", err)
	}
	log.Printf("[tg][setWebhook] %s", url)
	return nil
}

func formatCompletionTelegram(ev CompletionEvent) string {
	var b strings.Builder
	b.WriteString("✅ Задача выполнена\n")
	b.WriteString("• <b>" + html.EscapeString(ev.TaskTitle) + "</b>\n")
	b.WriteString("• Исполнитель: " + html.EscapeString(ev.WorkerName) + "\n")
	if ev.Credited > 0 {
		b.WriteString("• Бонус: <code>" + strconv.FormatInt(ev.Credited, 10) + "</code>\n")
	}
	for i, u := range ev.PhotoURLs {
		b.WriteString("• Фото " + strconv.Itoa(i+1) + ": " + html.EscapeString(u) + "\n")
	}
	return b.String()
}
