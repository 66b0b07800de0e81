package handlers

import (
	"context"
	"crypto/subtle"
	"html"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskdesk/internal/authz"
	"taskdesk/internal/models"
	"taskdesk/internal/repositories"
	"taskdesk/internal/services"
	"taskdesk/internal/utils"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"

	btnToday    = "📋 Задачи на сегодня"
	linkCodeTTL = 15 * time.Minute
	digestLimit = 20
)

// TelegramBot is the part of the bot the webhook talks through.
type TelegramBot interface {
	SendMessage(chatID int64, text string) error
	SendReplyKeyboard(chatID int64, text string, rows [][]string) error
}

type IntegrationsHandler struct {
	TG        TelegramBot
	LinksRepo repositories.TelegramLinkRepository
	UsersRepo repositories.UserRepository
	TaskSvc   services.TaskService
	Clock     Clock

	webhookSecret string
}

func NewIntegrationsHandler(
	tg TelegramBot,
	links repositories.TelegramLinkRepository,
	users repositories.UserRepository,
	taskSvc services.TaskService,
	clock Clock,
) *IntegrationsHandler {
	return &IntegrationsHandler{TG: tg, LinksRepo: links, UsersRepo: users, TaskSvc: taskSvc, Clock: clock}
}

// WithWebhookSecret makes Webhook drop updates that do not carry secret,
// the value passed to setWebhook.
func (h *IntegrationsHandler) WithWebhookSecret(secret string) *IntegrationsHandler {
	h.webhookSecret = secret
	return h
}

func (h *IntegrationsHandler) fromTelegram(c *gin.Context) bool {
	if h.webhookSecret == "" {
		return true
	}
	got := c.GetHeader(secretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) == 1
}

// Webhook принимает апдейты Telegram. На подписанные апдейты всегда отвечает 200,
// иначе Telegram будет ретраить.
// @Summary      Telegram webhook
// @Tags         Integrations
// @Accept       json
// @Param        X-Telegram-Bot-Api-Secret-Token  header  string  true  "secret passed to setWebhook"
// @Success      200
// @Failure      401
// @Router       /integrations/telegram/webhook [post]
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.TG == nil {
		log.Printf("[tg][webhook] bot is not configured, update ignored")
		c.Status(http.StatusOK)
		return
	}

	// чужие запросы не Telegram: им не нужен 200
	if !h.fromTelegram(c) {
		log.Printf("[tg][webhook][reject] bad secret token from %s", c.ClientIP())
		c.Status(http.StatusUnauthorized)
		return
	}

	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil || up.Message == nil || up.Message.Chat == nil {
		if err != nil {
			log.Printf("[tg][webhook][bind][err] %v", err)
		} else {
			log.Printf("[tg][webhook] update %d without message", up.UpdateID)
		}
		c.Status(http.StatusOK)
		return
	}

	text := strings.TrimSpace(up.Message.Text)
	chatID := up.Message.Chat.ID
	log.Printf("[tg][webhook] incoming chatID=%d text=%q", chatID, text)
	ctx := c.Request.Context()

	switch {
	case strings.HasPrefix(text, "/start"):
		_ = h.TG.SendReplyKeyboard(chatID,
			"Привет! Чтобы связать аккаунт, получите код в приложении и отправьте:\n<code>/link &lt;код&gt;</code>",
			[][]string{{btnToday}},
		)

	case strings.HasPrefix(text, "/link"):
		h.link(ctx, chatID, strings.TrimSpace(strings.TrimPrefix(text, "/link")))

	case strings.HasPrefix(text, "/today"), text == btnToday:
		h.sendTodayDigest(ctx, chatID)

	default:
		_ = h.TG.SendMessage(chatID, "Не понял команду. Используйте <code>/link &lt;код&gt;</code>, /today или кнопку меню.")
	}

	c.Status(http.StatusOK)
}

func (h *IntegrationsHandler) link(ctx context.Context, chatID int64, raw string) {
	code, ok := utils.NormalizeLinkCode(raw)
	if !ok {
		log.Printf("[tg][link] bad code format raw=%q", raw)
		_ = h.TG.SendMessage(chatID, "Неверный формат кода. Отправьте ровно 32 символа HEX:\n<code>/link 0123456789ABCDEF0123456789ABCDEF</code>")
		return
	}

	link, err := h.LinksRepo.UseByCode(ctx, code)
	if err != nil {
		log.Printf("[tg][link][err] code rejected: %v", err)
		_ = h.TG.SendMessage(chatID, "Код недействителен или истёк. Сгенерируйте новый в приложении.")
		return
	}
	if err := h.UsersRepo.UpdateTelegramLink(ctx, link.UserID, chatID, true); err != nil {
		log.Printf("[tg][link][err] userID=%d chatID=%d: %v", link.UserID, chatID, err)
		_ = h.TG.SendMessage(chatID, "Не удалось привязать аккаунт, попробуйте позже.")
		return
	}
	log.Printf("[tg][link][ok] userID=%d chatID=%d", link.UserID, chatID)
	_ = h.TG.SendReplyKeyboard(chatID,
		"Готово! Аккаунт привязан. Нажмите кнопку ниже, чтобы посмотреть задачи на сегодня.",
		[][]string{{btnToday}},
	)
}

func (h *IntegrationsHandler) sendTodayDigest(ctx context.Context, chatID int64) {
	u, err := h.UsersRepo.GetByChatID(ctx, chatID)
	if err != nil {
		log.Printf("[tg][today] no user for chatID=%d: %v", chatID, err)
		_ = h.TG.SendMessage(chatID, "Не удалось определить пользователя. Привяжите аккаунт командой /link.")
		return
	}
	if h.TaskSvc == nil {
		return
	}

	actor := authz.Actor{UserID: u.ID, RoleID: u.RoleID, CompanyID: u.CompanyID}
	today := h.Clock.Today()
	tasks, err := h.TaskSvc.ListVisible(ctx, actor, today, "")
	if err != nil {
		log.Printf("[tg][today][err] userID=%d: %v", u.ID, err)
		_ = h.TG.SendMessage(chatID, "Не удалось загрузить задачи.")
		return
	}
	_ = h.TG.SendReplyKeyboard(chatID, formatDigest(today, tasks, u.BonusBalance), [][]string{{btnToday}})
}

func formatDigest(today time.Time, tasks []models.Task, balance int64) string {
	if len(tasks) == 0 {
		return "На " + today.Format("02.01") + " задач нет. 👍"
	}

	var b strings.Builder
	b.WriteString("📋 <b>Задачи на " + today.Format("02.01") + "</b>\n")
	n := len(tasks)
	if n > digestLimit {
		n = digestLimit
	}
	done := 0
	for _, t := range tasks {
		if t.IsCompleted {
			done++
		}
	}
	for _, t := range tasks[:n] {
		mark := "⬜"
		if t.IsCompleted {
			mark = "✅"
		}
		b.WriteString(mark + " " + html.EscapeString(t.Title))
		if t.Price > 0 {
			b.WriteString(" (+" + strconv.FormatInt(t.Price, 10) + ")")
		}
		if t.RequiresPhoto && !t.HasProof() && !t.IsCompleted {
			b.WriteString(" 📷")
		}
		b.WriteString("\n")
	}
	if len(tasks) > n {
		b.WriteString("...и ещё " + strconv.Itoa(len(tasks)-n) + " шт.\n")
	}
	b.WriteString("\nВыполнено: " + strconv.Itoa(done) + "/" + strconv.Itoa(len(tasks)))
	b.WriteString("\nБонусы: <code>" + strconv.FormatInt(balance, 10) + "</code>")
	return b.String()
}

// RequestTelegramLink
// @Summary      Код привязки Telegram
// @Description  Одноразовый код на 15 минут. Отправьте боту: /link КОД
// @Tags         Integrations
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  errorResponse
// @Security     BearerAuth
// @Router       /integrations/telegram/request-link [post]
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	actor, ok := mustActor(c, "tg")
	if !ok {
		return
	}

	code, err := utils.NewLinkCode()
	if err != nil {
		log.Printf("[tg][request-link][err] rng: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rng failed"})
		return
	}

	link, err := h.LinksRepo.Create(c.Request.Context(), actor.UserID, code, linkCodeTTL)
	if err != nil {
		log.Printf("[tg][request-link][err] userID=%d: %v", actor.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create link"})
		return
	}
	log.Printf("[tg][request-link][ok] userID=%d expires=%s", actor.UserID, link.ExpiresAt.Format(time.RFC3339))

	c.JSON(http.StatusOK, gin.H{
		"code":       link.Code,
		"expires_at": link.ExpiresAt,
		"hint":       "Откройте чат с ботом и отправьте: /link " + link.Code,
	})
}
