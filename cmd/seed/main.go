package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	repos, closeStore, err := container.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer closeStore()

	auth := application.NewAuthService(repos.Users, repos.Tokens, nil, 0, nil, logger)
	tasks := application.NewTaskService(repos.Tasks, nil, logger)

	username := "demo"
	email := "demo@example.com"
	password := "password123"

	res, err := auth.Signup(ctx, application.SignupInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	var verr *application.ValidationError
	if errors.As(err, &verr) {
		// already seeded; reuse the account
		res, err = auth.Login(ctx, username, password)
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%d username=%s password=%s token=%s\n", res.User.ID, username, password, res.Token)

	existing, err := tasks.List(ctx, res.User.ID, repository.TaskFilter{})
	if err != nil {
		log.Fatalf("failed to list tasks: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("user already has %d tasks, skipping\n", len(existing))
		return
	}

	samples := []application.TaskInput{
		{Title: "Buy milk", Priority: ptr(entity.PriorityLow), Category: ptr(entity.CategoryHome)},
		{Title: "Finish quarterly report", Description: ptr("Numbers are in the shared drive"), Priority: ptr(entity.PriorityHigh), Category: ptr(entity.CategoryWork)},
		{Title: "Book dentist appointment", Category: ptr(entity.CategoryHealth)},
		{Title: "Read a chapter of Go book", Priority: ptr(entity.PriorityMedium), Category: ptr(entity.CategoryLearning)},
		{Title: "Pay electricity bill", Category: ptr(entity.CategoryFinance), Completed: ptr(true)},
	}
	for _, in := range samples {
		t, err := tasks.Create(ctx, res.User.ID, in)
		if err != nil {
			log.Fatalf("failed to seed task %q: %v", in.Title, err)
		}
		fmt.Printf("seeded task: id=%d title=%q completed=%v\n", t.ID, t.Title, t.Completed)
	}
}

func ptr[T any](v T) *T { return &v }
