package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

const taskColumns = `id, user_id, title, description, completed, priority, category, created_at, updated_at`

type TaskRepository struct {
	db *sql.DB
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, priority, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.UserID, t.Title, nullString(t.Description), t.Completed,
		nullPriority(t.Priority), nullCategory(t.Category), toMicros(t.CreatedAt), toMicros(t.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	t.CreatedAt = fromMicros(toMicros(t.CreatedAt))
	t.UpdatedAt = t.CreatedAt
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, ownerID, id int64) (*entity.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, ownerID)
	return scanTask(row)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64, f repository.TaskFilter) ([]entity.Task, error) {
	where := []string{"user_id = ?"}
	args := []any{ownerID}

	switch f.Status {
	case repository.TaskStatusCompleted:
		where = append(where, "completed = 1")
	case repository.TaskStatusPending:
		where = append(where, "completed = 0")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		where = append(where, `(lower(title) LIKE ? ESCAPE '\' OR lower(coalesce(description, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	rows, err := r.db.QueryContext(ctx, `
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
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ? AND id IN (`+placeholders+`)
		ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, priority = ?, category = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, t.Title, nullString(t.Description), t.Completed, nullPriority(t.Priority), nullCategory(t.Category),
		toMicros(t.UpdatedAt), t.ID, t.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Toggle(ctx context.Context, ownerID, id int64, at time.Time) (*entity.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET completed = NOT completed,
		    updated_at = MAX(?, updated_at + 1)
		WHERE id = ? AND user_id = ?
		RETURNING `+taskColumns, toMicros(at), id, ownerID)
	return scanTask(row)
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) CountIncomplete(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE user_id = ? AND completed = 0`, ownerID).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*entity.Task, error) {
	t := &entity.Task{}
	var description, priority, category sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Completed,
		&priority, &category, &createdAt, &updatedAt); err != nil {
		return nil, mapError(err)
	}
	if description.Valid {
		d := description.String
		t.Description = &d
	}
	if priority.Valid {
		p := entity.Priority(priority.String)
		t.Priority = &p
	}
	if category.Valid {
		c := entity.Category(category.String)
		t.Category = &c
	}
	t.CreatedAt = fromMicros(createdAt)
	t.UpdatedAt = fromMicros(updatedAt)
	return t, nil
}

func collectTasks(rows *sql.Rows) ([]entity.Task, error) {
	defer func() { _ = rows.Close() }()
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

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullPriority(p *entity.Priority) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}

func nullCategory(c *entity.Category) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
