package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

type TaskStatus string

const (
	TaskStatusAll       TaskStatus = "all"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusPending   TaskStatus = "pending"
)

// TaskFilter narrows an owner's task list. Zero value means all tasks.
type TaskFilter struct {
	Status TaskStatus
	Search string
}

// TaskRepository defines task persistence. Every method is scoped to ownerID
// (or Task.UserID): rows of other users are reported as ErrNotFound.
type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, ownerID, id int64) (*entity.Task, error)
	ListByOwner(ctx context.Context, ownerID int64, f TaskFilter) ([]entity.Task, error)
	ListByIDs(ctx context.Context, ownerID int64, ids []int64) ([]entity.Task, error)
	Update(ctx context.Context, t *entity.Task) error
	// Toggle flips completed and bumps updated_at to at least `at`, strictly past its previous value.
	Toggle(ctx context.Context, ownerID, id int64, at time.Time) (*entity.Task, error)
	Delete(ctx context.Context, ownerID, id int64) error
	CountIncomplete(ctx context.Context, ownerID int64) (int, error)
}
