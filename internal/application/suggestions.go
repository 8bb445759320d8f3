package application

import "github.com/oksasatya/go-task-manager/internal/domain/entity"

// pendingThreshold is the incomplete-task count above which the pending reminder is added.
const pendingThreshold = 5

type Suggestion struct {
	Title    string          `json:"title"`
	Reason   string          `json:"reason"`
	Priority entity.Priority `json:"priority"`
	Category entity.Category `json:"category"`
}

// Suggest derives task suggestions from the number of incomplete tasks.
func Suggest(incomplete int) []Suggestion {
	out := []Suggestion{
		{
			Title:    "Review and organize your tasks",
			Reason:   "Based on your task patterns, consider reviewing your priorities",
			Priority: entity.PriorityMedium,
			Category: entity.CategoryPersonal,
		},
		{
			Title:    "Plan for tomorrow",
			Reason:   "It's a good time to plan your next day",
			Priority: entity.PriorityLow,
			Category: entity.CategoryPersonal,
		},
	}
	if incomplete > pendingThreshold {
		out = append(out, Suggestion{
			Title:    "Complete pending tasks",
			Reason:   "You have several pending tasks that need attention",
			Priority: entity.PriorityHigh,
			Category: entity.CategoryWork,
		})
	}
	return out
}
