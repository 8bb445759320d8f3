package handlers

import (
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserResponse(u *entity.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

// TaskResponse is the wire shape of a task. Unset optional fields are null.
type TaskResponse struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Completed   bool             `json:"completed"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	User        UserResponse     `json:"user"`
	Priority    *entity.Priority `json:"priority"`
	Category    *entity.Category `json:"category"`
}

// toTaskResponse renders t for its owner; every task a caller can see is their own.
func toTaskResponse(t *entity.Task, owner *entity.User) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		User:        toUserResponse(owner),
		Priority:    t.Priority,
		Category:    t.Category,
	}
}

func toTaskResponses(tasks []entity.Task, owner *entity.User) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i], owner))
	}
	return out
}
