package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"taskdesk/internal/models"
	"taskdesk/internal/repositories"
	"taskdesk/internal/taskengine"
)

// fakeStore is an in-memory stand-in for PostgreSQL. One mutex plays the
// role of the row lock plus transaction: every mutation is all-or-nothing.
type fakeStore struct {
	mu        sync.Mutex
	tasks     map[int64]models.Task
	users     map[int64]models.User
	entries   []models.BonusEntry
	companies int64
	nextID    int64

	failBalance error
	failReset   map[int64]error
	transitions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:     map[int64]models.Task{},
		users:     map[int64]models.User{},
		failReset: map[int64]error{},
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) taskRepo() *fakeTaskRepo { return &fakeTaskRepo{s} }
func (s *fakeStore) userRepo() *fakeUserRepo { return &fakeUserRepo{s} }

func (s *fakeStore) balanceSum(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.entries {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum
}

func (s *fakeStore) user(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *fakeStore) task(id int64) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

func cloneTask(t models.Task) models.Task {
	t.PhotoURLs = append([]string(nil), t.PhotoURLs...)
	t.WeekDays = append(models.WeekDays(nil), t.WeekDays...)
	if t.WorkerID != nil {
		id := *t.WorkerID
		t.WorkerID = &id
	}
	if t.MonthDay != nil {
		d := *t.MonthDay
		t.MonthDay = &d
	}
	if t.CreditedTo != nil {
		id := *t.CreditedTo
		t.CreditedTo = &id
	}
	return t
}

// ---- tasks

type fakeTaskRepo struct{ s *fakeStore }

var _ repositories.TaskRepository = (*fakeTaskRepo)(nil)

func (r *fakeTaskRepo) Store(_ context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task.ID = r.s.id()
	r.s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id int64) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
	}
	t = cloneTask(t)
	return &t, nil
}

func (r *fakeTaskRepo) FindAll(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Task
	for _, t := range r.s.tasks {
		if filter.CompanyID != nil && t.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.WorkerID != nil && (t.WorkerID == nil || *t.WorkerID != *filter.WorkerID) {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tasks[task.ID]
	if !ok {
		return taskengine.ErrNotFound
	}
	next := cloneTask(*task)
	// completion state, credit and photos are not part of a field update
	next.IsCompleted = cur.IsCompleted
	next.CreditedTo, next.CreditedAmount = cur.CreditedTo, cur.CreditedAmount
	next.PhotoURLs = cur.PhotoURLs
	next.PhotoURL = cur.PhotoURL
	r.s.tasks[task.ID] = next
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return taskengine.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func (r *fakeTaskRepo) Transition(_ context.Context, id int64, decide repositories.TransitionFunc) (taskengine.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tasks[id]
	if !ok {
		return taskengine.Outcome{}, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
	}
	out, err := decide(cloneTask(cur))
	if err != nil {
		return taskengine.Outcome{}, err
	}
	if !out.Changed {
		return out, nil
	}
	if out.BalanceDelta != 0 && out.Beneficiary != nil {
		if r.s.failBalance != nil {
			return taskengine.Outcome{}, r.s.failBalance
		}
		u, ok := r.s.users[*out.Beneficiary]
		if !ok {
			return taskengine.Outcome{}, taskengine.ErrNotFound
		}
		u.BonusBalance += out.BalanceDelta
		r.s.users[u.ID] = u
		taskID := id
		r.s.entries = append(r.s.entries, models.BonusEntry{
			ID: r.s.id(), UserID: u.ID, TaskID: &taskID, Amount: out.BalanceDelta, Reason: out.Reason,
		})
	}
	cur.IsCompleted = out.Task.IsCompleted
	cur.CreditedTo, cur.CreditedAmount = out.Task.CreditedTo, out.Task.CreditedAmount
	r.s.tasks[id] = cur
	r.s.transitions++
	return out, nil
}

func (r *fakeTaskRepo) UpdatePhotos(_ context.Context, id int64, change repositories.PhotosFunc) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
	}
	urls, err := change(cloneTask(cur))
	if err != nil {
		return nil, err
	}
	cur.SetPhotos(urls)
	r.s.tasks[id] = cur
	out := cloneTask(cur)
	return &out, nil
}

func (r *fakeTaskRepo) ListResettable(_ context.Context) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Task
	for _, t := range r.s.tasks {
		if taskengine.NeedsReset(t) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) ResetCompletion(_ context.Context, id int64) ([]string, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failReset[id]; err != nil {
		return nil, false, err
	}
	cur, ok := r.s.tasks[id]
	if !ok {
		return nil, false, taskengine.ErrNotFound
	}
	if !taskengine.NeedsReset(cur) {
		return nil, false, nil
	}
	next, released := taskengine.ClearForReset(cloneTask(cur))
	r.s.tasks[id] = next
	return released, true, nil
}

// ---- users

type fakeUserRepo struct{ s *fakeStore }

var _ repositories.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = r.s.id()
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", taskengine.ErrNotFound)
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", taskengine.ErrNotFound)
}

func (r *fakeUserRepo) ListByCompany(_ context.Context, companyID int64) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.CompanyID == companyID {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[user.ID]
	if !ok {
		return taskengine.ErrNotFound
	}
	cur.Name, cur.Email, cur.RoleID, cur.NotifyTelegram = user.Name, user.Email, user.RoleID, user.NotifyTelegram
	r.s.users[user.ID] = cur
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

func (r *fakeUserRepo) ResetBalance(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, taskengine.ErrNotFound
	}
	if u.BonusBalance != 0 {
		r.s.entries = append(r.s.entries, models.BonusEntry{
			ID: r.s.id(), UserID: id, Amount: -u.BonusBalance, Reason: models.BonusReset,
		})
	}
	u.BonusBalance = 0
	r.s.users[id] = u
	return &u, nil
}

func (r *fakeUserRepo) UpdateTelegramLink(_ context.Context, userID int64, chatID int64, enable bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return taskengine.ErrNotFound
	}
	u.TelegramChatID, u.NotifyTelegram = chatID, enable
	r.s.users[userID] = u
	return nil
}

func (r *fakeUserRepo) GetTelegramSettings(_ context.Context, userID int64) (int64, bool, error) {
	u, err := r.GetByID(context.Background(), userID)
	if err != nil {
		return 0, false, err
	}
	return u.TelegramChatID, u.NotifyTelegram, nil
}

func (r *fakeUserRepo) GetByChatID(_ context.Context, chatID int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.TelegramChatID == chatID {
			return &u, nil
		}
	}
	return nil, taskengine.ErrNotFound
}

// ---- companies, bonus ledger

type fakeCompanyRepo struct{ s *fakeStore }

func (r *fakeCompanyRepo) CreateWithAdmin(ctx context.Context, company *models.Company, admin *models.User) error {
	r.s.mu.Lock()
	r.s.companies++
	company.ID = r.s.companies
	r.s.mu.Unlock()
	admin.CompanyID = company.ID
	return r.s.userRepo().Create(ctx, admin)
}

type fakeBonusRepo struct{ s *fakeStore }

func (r *fakeBonusRepo) ListByUser(_ context.Context, userID int64) ([]models.BonusEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.BonusEntry
	for _, e := range r.s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- collaborators

type fakeFiles struct {
	mu      sync.Mutex
	removed []string
	dirs    []string
	fail    map[string]error
}

func (f *fakeFiles) Remove(dir, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs = append(f.dirs, dir)
	if err := f.fail[ref]; err != nil {
		return err
	}
	f.removed = append(f.removed, ref)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []CompletionEvent
	err    error
}

func (n *fakeNotifier) NotifyCompletion(_ context.Context, ev CompletionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
