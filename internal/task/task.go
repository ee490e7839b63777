// Package task holds the task model shared by the repository, the query
// pipeline and the views.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrInvalid  = errors.New("invalid task")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusCompleted  Status = "completed"
)

// Priorities lists every priority in display order.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusCompleted}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func ParsePriority(v string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalid, v)
	}
	return p, nil
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalid, v)
	}
	return s, nil
}

type Task struct {
	ID          int
	Title       string
	Description string
	Priority    Priority
	Status      Status
}

// Filters narrows a collection. An empty field matches any value.
type Filters struct {
	Priority Priority
	Status   Status
}

func (f Filters) Matches(t Task) bool {
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func (f Filters) IsZero() bool {
	return f.Priority == "" && f.Status == ""
}

func (f Filters) String() string {
	parts := make([]string, 0, 2)
	if f.Priority != "" {
		parts = append(parts, "priority:"+string(f.Priority))
	}
	if f.Status != "" {
		parts = append(parts, "status:"+string(f.Status))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " ")
}

const DefaultPageSize = 10

// Query is what should currently be visible. Its fields change together.
type Query struct {
	Filters  Filters
	Page     int
	PageSize int
}

func DefaultQuery() Query {
	return Query{Page: 1, PageSize: DefaultPageSize}
}

type Page struct {
	Items []Task
	Total int
}

// Repository is the backend the query pipeline reads from and mutates
// through. FetchAll returns the full, unpaginated set matching filters.
type Repository interface {
	FetchAll(ctx context.Context, filters Filters) ([]Task, error)
	Create(ctx context.Context, in CreateInput) error
	Update(ctx context.Context, in UpdateInput) error
	Delete(ctx context.Context, id int) error
}
