package services

import (
	"context"
	"io"
	"log"
	"time"

	"taskdesk/internal/authz"
	"taskdesk/internal/pdf"
	"taskdesk/internal/repositories"
)

// StatementService renders a worker's bonus ledger as PDF.
type StatementService struct {
	users  UserService
	bonus  repositories.BonusRepository
	tasks  repositories.TaskRepository
	render pdf.Generator
	now    func() time.Time
}

func NewStatementService(users UserService, bonus repositories.BonusRepository, tasks repositories.TaskRepository, render pdf.Generator) *StatementService {
	return &StatementService{users: users, bonus: bonus, tasks: tasks, render: render, now: time.Now}
}

func (s *StatementService) Write(ctx context.Context, actor authz.Actor, userID int64, w io.Writer) error {
	u, err := s.users.GetUser(ctx, actor, userID)
	if err != nil {
		return err
	}
	entries, err := s.bonus.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	titles := map[int64]string{}
	for _, e := range entries {
		if e.TaskID == nil {
			continue
		}
		if _, ok := titles[*e.TaskID]; ok {
			continue
		}
		t, err := s.tasks.FindByID(ctx, *e.TaskID)
		if err != nil {
			log.Printf("[statement][warn] user=%d task=%d: %v", userID, *e.TaskID, err)
			titles[*e.TaskID] = ""
			continue
		}
		titles[*e.TaskID] = t.Title
	}

	return s.render.RenderStatement(w, pdf.StatementData{
		WorkerName:  u.Name,
		WorkerEmail: u.Email,
		Balance:     u.BonusBalance,
		Entries:     entries,
		TaskTitles:  titles,
		GeneratedAt: s.now(),
	})
}
