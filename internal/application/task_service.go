package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/metrics"
)

// searchLimit caps how many ids one index query may return.
const searchLimit = 100

// TaskIndex is a full-text index over tasks. Results are candidate ids only;
// the store stays the source of truth for ownership.
type TaskIndex interface {
	Index(ctx context.Context, t *entity.Task) error
	Remove(ctx context.Context, ownerID, id int64) error
	Search(ctx context.Context, ownerID int64, q string, limit int) ([]int64, error)
}

// TaskInput carries the writable fields of a task for create and full replace.
// A nil Completed keeps the current value (false on create).
type TaskInput struct {
	Title       string
	Description *string
	Priority    *entity.Priority
	Category    *entity.Category
	Completed   *bool
}

// TaskPatch is a partial update; only fields with Set are applied.
type TaskPatch struct {
	Title       Optional[string]          `json:"title"`
	Description Optional[string]          `json:"description"`
	Completed   Optional[bool]            `json:"completed"`
	Priority    Optional[entity.Priority] `json:"priority"`
	Category    Optional[entity.Category] `json:"category"`
}

type TaskService struct {
	tasks  repository.TaskRepository
	index  TaskIndex
	logger *logrus.Logger

	now func() time.Time
}

// NewTaskService wires the task use cases. index may be nil.
func NewTaskService(tasks repository.TaskRepository, index TaskIndex, logger *logrus.Logger) *TaskService {
	return &TaskService{
		tasks:  tasks,
		index:  index,
		logger: logger,
		now:    time.Now,
	}
}

func (s *TaskService) List(ctx context.Context, ownerID int64, f repository.TaskFilter) ([]entity.Task, error) {
	switch f.Status {
	case "":
		f.Status = repository.TaskStatusAll
	case repository.TaskStatusAll, repository.TaskStatusCompleted, repository.TaskStatusPending:
	default:
		return nil, &ValidationError{
			Message: "Invalid status filter",
			Fields:  map[string]string{"status": "must be one of: all, completed, pending"},
		}
	}
	f.Search = strings.TrimSpace(f.Search)
	tasks, err := s.tasks.ListByOwner(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id int64) (*entity.Task, error) {
	t, err := s.tasks.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, notFound("get task", err)
	}
	return t, nil
}

func (s *TaskService) Create(ctx context.Context, ownerID int64, in TaskInput) (t *entity.Task, err error) {
	defer func() { metrics.IncTaskOperation("create", err) }()

	now := s.now().UTC().Truncate(time.Microsecond)
	t = &entity.Task{
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(t, in)
	if err := validateTask(t); err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.reindex(ctx, t)
	return t, nil
}

// Update applies only the fields present in p.
func (s *TaskService) Update(ctx context.Context, ownerID, id int64, p TaskPatch) (t *entity.Task, err error) {
	defer func() { metrics.IncTaskOperation("update", err) }()

	t, err = s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if p.Title.Set {
		if p.Title.Value == nil {
			return nil, &ValidationError{Message: "Invalid task", Fields: map[string]string{"title": "may not be null"}}
		}
		t.Title = strings.TrimSpace(*p.Title.Value)
	}
	if p.Completed.Set {
		if p.Completed.Value == nil {
			return nil, &ValidationError{Message: "Invalid task", Fields: map[string]string{"completed": "may not be null"}}
		}
		t.Completed = *p.Completed.Value
	}
	if p.Description.Set {
		t.Description = normalizeDescription(p.Description.Value)
	}
	if p.Priority.Set {
		t.Priority = normalizeChoice(p.Priority.Value)
	}
	if p.Category.Set {
		t.Category = normalizeChoice(p.Category.Value)
	}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Replace overwrites every writable field. Absent optional fields are cleared.
func (s *TaskService) Replace(ctx context.Context, ownerID, id int64, in TaskInput) (t *entity.Task, err error) {
	defer func() { metrics.IncTaskOperation("replace", err) }()

	t, err = s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	applyInput(t, in)
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id int64) (err error) {
	defer func() { metrics.IncTaskOperation("delete", err) }()

	if err := s.tasks.Delete(ctx, ownerID, id); err != nil {
		return notFound("delete task", err)
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, ownerID, id); err != nil {
			helpers.LogError(s.logger, "task index remove failed", err, logrus.Fields{"task_id": id})
		}
	}
	return nil
}

// Toggle flips completion in one statement.
func (s *TaskService) Toggle(ctx context.Context, ownerID, id int64) (t *entity.Task, err error) {
	defer func() { metrics.IncTaskOperation("toggle", err) }()

	t, err = s.tasks.Toggle(ctx, ownerID, id, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, notFound("toggle task", err)
	}
	s.reindex(ctx, t)
	return t, nil
}

func (s *TaskService) Suggestions(ctx context.Context, ownerID int64) ([]Suggestion, error) {
	n, err := s.tasks.CountIncomplete(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count incomplete tasks: %w", err)
	}
	return Suggest(n), nil
}

// Search prefers the full-text index and falls back to a substring filter
// when no index is configured or the index fails.
func (s *TaskService) Search(ctx context.Context, ownerID int64, q string) ([]entity.Task, error) {
	q = strings.TrimSpace(q)
	if q == "" || s.index == nil {
		return s.List(ctx, ownerID, repository.TaskFilter{Search: q})
	}
	ids, err := s.index.Search(ctx, ownerID, q, searchLimit)
	if err != nil {
		helpers.LogError(s.logger, "task index search failed, falling back", err, logrus.Fields{"owner_id": ownerID})
		return s.List(ctx, ownerID, repository.TaskFilter{Search: q})
	}
	if len(ids) == 0 {
		return []entity.Task{}, nil
	}
	tasks, err := s.tasks.ListByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("load search hits: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) save(ctx context.Context, t *entity.Task) error {
	if err := validateTask(t); err != nil {
		return err
	}
	t.UpdatedAt = nextUpdatedAt(s.now(), t.UpdatedAt)
	if err := s.tasks.Update(ctx, t); err != nil {
		return notFound("update task", err)
	}
	s.reindex(ctx, t)
	return nil
}

func (s *TaskService) reindex(ctx context.Context, t *entity.Task) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, t); err != nil {
		helpers.LogError(s.logger, "task index update failed", err, logrus.Fields{"task_id": t.ID})
	}
}

// nextUpdatedAt keeps updated_at strictly increasing at microsecond precision.
func nextUpdatedAt(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond).UTC()
	}
	return now
}

func applyInput(t *entity.Task, in TaskInput) {
	t.Title = strings.TrimSpace(in.Title)
	t.Description = normalizeDescription(in.Description)
	t.Priority = normalizeChoice(in.Priority)
	t.Category = normalizeChoice(in.Category)
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
}

func validateTask(t *entity.Task) error {
	fields := map[string]string{}
	switch {
	case t.Title == "":
		fields["title"] = "is required"
	case utf8.RuneCountInString(t.Title) > entity.TitleMaxLength:
		fields["title"] = fmt.Sprintf("must be at most %d characters long", entity.TitleMaxLength)
	}
	if t.Priority != nil && !t.Priority.Valid() {
		fields["priority"] = "must be one of: Low, Medium, High"
	}
	if t.Category != nil && !t.Category.Valid() {
		fields["category"] = "must be one of: Work, Personal, Home, Health, Learning, Finance"
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "Invalid task", Fields: fields}
	}
	return nil
}

// normalizeDescription stores blank descriptions as NULL.
func normalizeDescription(d *string) *string {
	if d == nil || strings.TrimSpace(*d) == "" {
		return nil
	}
	v := *d
	return &v
}

// normalizeChoice treats the empty choice sent by forms as unset.
func normalizeChoice[T ~string](v *T) *T {
	if v == nil || *v == "" {
		return nil
	}
	c := *v
	return &c
}

func notFound(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
