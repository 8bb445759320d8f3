package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

const taskColumns = `id, user_id, title, description, completed, priority, category, created_at, updated_at`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, priority, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Title, t.Description, t.Completed, priorityArg(t.Priority), categoryArg(t.Category), t.CreatedAt)

	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, ownerID, id int64) (*entity.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	return scanTask(row)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64, f repository.TaskFilter) ([]entity.Task, error) {
	where := []string{"user_id = $1"}
	args := []any{ownerID}

	switch f.Status {
	case repository.TaskStatusCompleted:
		where = append(where, "completed = TRUE")
	case repository.TaskStatusPending:
		where = append(where, "completed = FALSE")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(title ILIKE $%d OR description ILIKE $%d)`, n, n))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *TaskRepository) ListByIDs(ctx context.Context, ownerID int64, ids []int64) ([]entity.Task, error) {
	if len(ids) == 0 {
		return []entity.Task{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND id = ANY($2)
		ORDER BY created_at DESC, id DESC
	`, ownerID, ids)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, completed = $3, priority = $4, category = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
	`, t.Title, t.Description, t.Completed, priorityArg(t.Priority), categoryArg(t.Category), t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Toggle(ctx context.Context, ownerID, id int64, at time.Time) (*entity.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET completed = NOT completed,
		    updated_at = GREATEST($3::timestamptz, updated_at + interval '1 microsecond')
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns, id, ownerID, at)
	return scanTask(row)
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) CountIncomplete(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE user_id = $1 AND completed = FALSE`, ownerID).Scan(&n)
	return n, err
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	t := &entity.Task{}
	var priority, category *string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&priority, &category, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	if priority != nil {
		p := entity.Priority(*priority)
		t.Priority = &p
	}
	if category != nil {
		c := entity.Category(*category)
		t.Category = &c
	}
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]entity.Task, error) {
	defer rows.Close()
	tasks := []entity.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func priorityArg(p *entity.Priority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func categoryArg(c *entity.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
