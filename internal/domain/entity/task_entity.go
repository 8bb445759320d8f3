package entity

import "time"

// TitleMaxLength bounds Task.Title in runes.
const TitleMaxLength = 200

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists the accepted priorities in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryHome     Category = "Home"
	CategoryHealth   Category = "Health"
	CategoryLearning Category = "Learning"
	CategoryFinance  Category = "Finance"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryHome, CategoryHealth, CategoryLearning, CategoryFinance}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Task is a to-do item owned by exactly one user.
// Description, Priority and Category are optional and nil when unset.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description *string
	Completed   bool
	Priority    *Priority
	Category    *Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
