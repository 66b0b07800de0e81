package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"taskdesk/internal/metrics"
	"taskdesk/internal/models"
	"taskdesk/internal/repositories"
	"taskdesk/internal/taskengine"
)

// ResetReport summarises one run of the daily sweep.
type ResetReport struct {
	Reset         int      `json:"reset"`
	Released      []string `json:"released"`
	FailedDeletes int      `json:"failed_deletes"`
}

// ResetService reopens completed recurring tasks at the start of a new cycle.
// It is run by an external scheduler; bonus balances are never touched.
type ResetService struct {
	tasks repositories.TaskRepository
	files FileRemover
}

func NewResetService(tasks repositories.TaskRepository, files FileRemover) *ResetService {
	return &ResetService{tasks: tasks, files: files}
}

func (s *ResetService) RunDaily(ctx context.Context) (ResetReport, error) {
	var report ResetReport

	candidates, err := s.tasks.ListResettable(ctx)
	if err != nil {
		return report, fmt.Errorf("list resettable tasks: %w", err)
	}
	log.Printf("[reset][sweep] candidates=%d", len(candidates))

	var errs []error
	for _, t := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		released, reset, err := s.tasks.ResetCompletion(ctx, t.ID)
		if err != nil {
			log.Printf("[reset][task][err] id=%d: %v", t.ID, err)
			errs = append(errs, fmt.Errorf("reset task %d: %w", t.ID, err))
			continue
		}
		if !reset {
			log.Printf("[reset][task][skip] id=%d reopened concurrently", t.ID)
			continue
		}
		report.Reset++
		metrics.RecurringResets.Inc()
		report.Released = append(report.Released, released...)

		report.FailedDeletes += s.removeFiles(t, released)
	}

	log.Printf("[reset][sweep][done] reset=%d released=%d failed_deletes=%d errors=%d",
		report.Reset, len(report.Released), report.FailedDeletes, len(errs))
	return report, errors.Join(errs...)
}

func (s *ResetService) removeFiles(t models.Task, refs []string) int {
	if s.files == nil {
		return 0
	}
	dir := taskengine.ProofDir(t)
	failed := 0
	for _, ref := range refs {
		if err := s.files.Remove(dir, ref); err != nil {
			failed++
			metrics.PhotoDeleteFailures.Inc()
			log.Printf("[reset][photos][warn] task=%d remove %q: %v", t.ID, ref, err)
		}
	}
	return failed
}
