package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskdesk/internal/authz"
	"taskdesk/internal/metrics"
	"taskdesk/internal/repositories"
)

// CompletionEvent describes a task that just moved to completed.
type CompletionEvent struct {
	ID          string
	TaskID      int64
	CompanyID   int64
	TaskTitle   string
	WorkerName  string
	PhotoURLs   []string
	Price       int64
	Credited    int64 // what the assignee actually received; zero when nobody was paid
	CompletedBy int64
	CompletedAt time.Time
}

type Notifier interface {
	NotifyCompletion(ctx context.Context, ev CompletionEvent) error
}

// TelegramSender is the part of the bot the notifier needs.
type TelegramSender interface {
	SendMessage(chatID int64, text string) error
}

// LiveFeed pushes events to the admins currently watching a company's board.
type LiveFeed interface {
	Publish(companyID int64, v any)
}

// BoardEvent is what live board subscribers receive.
type BoardEvent struct {
	Type        string    `json:"type"`
	EventID     string    `json:"event_id"`
	TaskID      int64     `json:"task_id"`
	TaskTitle   string    `json:"task_title"`
	WorkerName  string    `json:"worker_name"`
	Price       int64     `json:"price"`
	Credited    int64     `json:"credited"`
	PhotoURLs   []string  `json:"photo_urls"`
	CompletedAt time.Time `json:"completed_at"`
}

// AdminNotifier tells every admin of the task's company, by e-mail and by
// Telegram when the admin linked a chat.
type AdminNotifier struct {
	users    repositories.UserRepository
	email    EmailService
	telegram TelegramSender
	live     LiveFeed
}

func NewAdminNotifier(users repositories.UserRepository, email EmailService, telegram TelegramSender) *AdminNotifier {
	return &AdminNotifier{users: users, email: email, telegram: telegram}
}

// WithLiveFeed also publishes every completion to the live board.
func (n *AdminNotifier) WithLiveFeed(feed LiveFeed) *AdminNotifier {
	n.live = feed
	return n
}

func (n *AdminNotifier) NotifyCompletion(ctx context.Context, ev CompletionEvent) error {
	if n.live != nil {
		n.live.Publish(ev.CompanyID, BoardEvent{
			Type:        "task.completed",
			EventID:     ev.ID,
			TaskID:      ev.TaskID,
			TaskTitle:   ev.TaskTitle,
			WorkerName:  ev.WorkerName,
			Price:       ev.Price,
			Credited:    ev.Credited,
			PhotoURLs:   ev.PhotoURLs,
			CompletedAt: ev.CompletedAt,
		})
	}

	users, err := n.users.ListByCompany(ctx, ev.CompanyID)
	if err != nil {
		return fmt.Errorf("list admins of company %d: %w", ev.CompanyID, err)
	}

	var (
		recipients []string
		errs       []error
	)
	for _, u := range users {
		if !authz.IsAdmin(u.RoleID) {
			continue
		}
		recipients = append(recipients, u.Email)
		if n.telegram == nil || !u.NotifyTelegram || u.TelegramChatID == 0 {
			continue
		}
		if err := n.telegram.SendMessage(u.TelegramChatID, formatCompletionTelegram(ev)); err != nil {
			metrics.NotificationFailures.WithLabelValues("telegram").Inc()
			errs = append(errs, fmt.Errorf("telegram to user %d: %w", u.ID, err))
		}
	}

	if n.email != nil && len(recipients) > 0 {
		if err := n.email.SendTaskCompletedEmail(recipients, ev); err != nil {
			metrics.NotificationFailures.WithLabelValues("email").Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notifySafely runs the notifier and only logs what went wrong.
func notifySafely(ctx context.Context, n Notifier, ev CompletionEvent) {
	if n == nil {
		return
	}
	if err := n.NotifyCompletion(ctx, ev); err != nil {
		log.Printf("[notify][completion][err] event=%s task=%d: %v", ev.ID, ev.TaskID, err)
		return
	}
	log.Printf("[notify][completion][ok] event=%s task=%d", ev.ID, ev.TaskID)
}

