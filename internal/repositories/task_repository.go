package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"taskdesk/internal/models"
	"taskdesk/internal/taskengine"
)

// TransitionFunc decides the next state of a locked task.
type TransitionFunc func(current models.Task) (taskengine.Outcome, error)

// PhotosFunc returns the new photo list for a locked task.
type PhotosFunc func(current models.Task) ([]string, error)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id int64) error

	// Transition locks the task row, applies decide and commits the task flag,
	// the balance movement and its ledger entry together.
	Transition(ctx context.Context, id int64, decide TransitionFunc) (taskengine.Outcome, error)
	UpdatePhotos(ctx context.Context, id int64, change PhotosFunc) (*models.Task, error)

	ListResettable(ctx context.Context) ([]models.Task, error)
	// ResetCompletion reopens one recurring task and returns the photo refs it released.
	ResetCompletion(ctx context.Context, id int64) (released []string, reset bool, err error)
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, company_id, created_by, worker_id, title, description, category,
       requires_photo, photo_urls, photo_url, example_photo_url, is_completed,
       week_days, month_day, is_recurring, price, credited_to, credited_amount,
       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t            models.Task
		workerID     sql.NullInt64
		photoURLs    pq.StringArray
		photoURL     sql.NullString
		examplePhoto sql.NullString
		weekDays     pq.Int64Array
		monthDay     sql.NullInt64
		creditedTo   sql.NullInt64
	)
	if err := row.Scan(
		&t.ID, &t.CompanyID, &t.CreatedBy, &workerID, &t.Title, &t.Description, &t.Category,
		&t.RequiresPhoto, &photoURLs, &photoURL, &examplePhoto, &t.IsCompleted,
		&weekDays, &monthDay, &t.IsRecurring, &t.Price, &creditedTo, &t.CreditedAmount,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if workerID.Valid {
		id := workerID.Int64
		t.WorkerID = &id
	}
	t.PhotoURLs = []string(photoURLs)
	t.PhotoURL = photoURL.String
	t.ExamplePhotoURL = examplePhoto.String
	if len(weekDays) > 0 {
		t.WeekDays = make(models.WeekDays, 0, len(weekDays))
		for _, d := range weekDays {
			t.WeekDays = append(t.WeekDays, int(d))
		}
	}
	if monthDay.Valid {
		d := int(monthDay.Int64)
		t.MonthDay = &d
	}
	if creditedTo.Valid {
		id := creditedTo.Int64
		t.CreditedTo = &id
	}
	return &t, nil
}

func weekDaysParam(w models.WeekDays) any {
	if !w.Restricted() {
		return nil
	}
	arr := make(pq.Int64Array, 0, len(w))
	for _, d := range w.Normalized() {
		arr = append(arr, int64(d))
	}
	return arr
}

func monthDayParam(d *int) any {
	if d == nil {
		return nil
	}
	return *d
}

func photosParam(urls []string) pq.StringArray {
	if urls == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(urls)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			company_id, created_by, worker_id, title, description, category,
			requires_photo, photo_urls, photo_url, example_photo_url, is_completed,
			week_days, month_day, is_recurring, price, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		task.CompanyID, task.CreatedBy, task.WorkerID, task.Title, task.Description, task.Category,
		task.RequiresPhoto, photosParam(task.PhotoURLs), nullString(task.PhotoURL), nullString(task.ExamplePhotoURL),
		task.IsCompleted, weekDaysParam(task.WeekDays), monthDayParam(task.MonthDay), task.IsRecurring, task.Price,
		task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.CompanyID != nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argID))
		args = append(args, *filter.CompanyID)
		argID++
	}
	if filter.WorkerID != nil {
		conditions = append(conditions, fmt.Sprintf("worker_id = $%d", argID))
		args = append(args, *filter.WorkerID)
		argID++
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argID))
		args = append(args, *filter.Category)
		argID++
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY created_at DESC"

	return r.queryTasks(ctx, baseQuery, args...)
}

func (r *taskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update writes the admin-editable fields only. Completion state and photos
// have their own paths so a stale edit form cannot overwrite them.
func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET
			worker_id=$1, title=$2, description=$3, category=$4, requires_photo=$5,
			example_photo_url=$6, week_days=$7, month_day=$8, is_recurring=$9, price=$10,
			updated_at=$11
		WHERE id=$12`
	res, err := r.db.ExecContext(ctx, query,
		task.WorkerID, task.Title, task.Description, task.Category, task.RequiresPhoto,
		nullString(task.ExamplePhotoURL), weekDaysParam(task.WeekDays), monthDayParam(task.MonthDay),
		task.IsRecurring, task.Price, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(res, "task", task.ID)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "task", id)
}

func lockTask(ctx context.Context, tx *sql.Tx, id int64) (*models.Task, error) {
	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Transition(ctx context.Context, id int64, decide TransitionFunc) (taskengine.Outcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return taskengine.Outcome{}, err
	}
	defer tx.Rollback()

	current, err := lockTask(ctx, tx, id)
	if err != nil {
		return taskengine.Outcome{}, err
	}

	out, err := decide(*current)
	if err != nil {
		return taskengine.Outcome{}, err
	}
	if !out.Changed {
		return out, nil
	}

	if err := tx.QueryRowContext(ctx,
		`UPDATE tasks SET is_completed=$1, credited_to=$2, credited_amount=$3, updated_at=NOW()
		 WHERE id=$4 RETURNING updated_at`,
		out.Task.IsCompleted, out.Task.CreditedTo, out.Task.CreditedAmount, id,
	).Scan(&out.Task.UpdatedAt); err != nil {
		return taskengine.Outcome{}, fmt.Errorf("update task %d: %w", id, err)
	}

	if out.BalanceDelta != 0 && out.Beneficiary != nil {
		if err := adjustBalance(ctx, tx, *out.Beneficiary, out.BalanceDelta); err != nil {
			return taskengine.Outcome{}, err
		}
		taskID := id
		if err := insertBonusEntry(ctx, tx, &models.BonusEntry{
			UserID: *out.Beneficiary,
			TaskID: &taskID,
			Amount: out.BalanceDelta,
			Reason: out.Reason,
		}); err != nil {
			return taskengine.Outcome{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return taskengine.Outcome{}, err
	}
	return out, nil
}

func (r *taskRepository) UpdatePhotos(ctx context.Context, id int64, change PhotosFunc) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	task, err := lockTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	urls, err := change(*task)
	if err != nil {
		return nil, err
	}
	task.SetPhotos(urls)

	if err := tx.QueryRowContext(ctx,
		`UPDATE tasks SET photo_urls=$1, photo_url=$2, updated_at=NOW() WHERE id=$3 RETURNING updated_at`,
		photosParam(task.PhotoURLs), nullString(task.PhotoURL), id,
	).Scan(&task.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update photos of task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) ListResettable(ctx context.Context) ([]models.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE is_recurring = TRUE AND is_completed = TRUE
		ORDER BY id ASC`)
}

func (r *taskRepository) ResetCompletion(ctx context.Context, id int64) ([]string, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	current, err := lockTask(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	// A completion toggled since the listing may already have reopened it.
	if !taskengine.NeedsReset(*current) {
		return nil, false, nil
	}
	next, released := taskengine.ClearForReset(*current)

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET is_completed=$1, photo_urls=$2, photo_url=$3,
		        credited_to=NULL, credited_amount=0, updated_at=NOW()
		 WHERE id=$4`,
		next.IsCompleted, photosParam(next.PhotoURLs), nullString(next.PhotoURL), id,
	); err != nil {
		return nil, false, fmt.Errorf("reset task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return released, true, nil
}

func expectAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, taskengine.ErrNotFound)
	}
	return nil
}
