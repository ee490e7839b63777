// Package api defines the task API wire format shared by the HTTP server and
// the remote repository client.
package api

import (
	"strings"

	"taskdeck/internal/task"
)

const (
	PathList   = "/GetAllTasks"
	PathSave   = "/SaveTask"
	PathUpdate = "/UpdateTask"
	PathDelete = "/DeleteTask"

	DefaultLimitRow = 1000
	NoDescription   = "No description provided."

	EventTasksChanged = "tasks.changed"
	HeaderRequestID   = "X-Request-Id"
)

type ListRequest struct {
	CurRow     int    `json:"curRow" validate:"gte=0"`
	LimitRow   int    `json:"limitRow" validate:"gte=0"`
	FilterText string `json:"filterText"`
}

type ListResponse struct {
	Data        []Task `json:"data"`
	TotalRecord int    `json:"totalrecord"`
}

type Task struct {
	TaskID      int    `json:"taskId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

type SaveRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=256"`
	Description string `json:"description,omitempty" validate:"max=4096"`
	Priority    string `json:"priority" validate:"required"`
	Status      string `json:"status" validate:"required"`
}

type UpdateRequest struct {
	TaskID      int     `json:"taskId" validate:"required,gt=0"`
	Title       *string `json:"title,omitempty" validate:"omitempty,min=3,max=256"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4096"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ChangeEvent is pushed on the events websocket after every successful mutation.
type ChangeEvent struct {
	Event  string `json:"event"`
	Op     string `json:"op"`
	TaskID int    `json:"taskId"`
}

// FromPriority renders a priority the way the API stores it ("High").
func FromPriority(p task.Priority) string {
	if p == "" {
		return ""
	}
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ToPriority reads an API priority; unknown values fall back to medium.
func ToPriority(v string) task.Priority {
	p := task.Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return task.PriorityMedium
	}
	return p
}

func FromStatus(s task.Status) string {
	return string(s)
}

// ToStatus reads an API status; anything that is not todo or inprogress is
// treated as completed.
func ToStatus(v string) task.Status {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case string(task.StatusInProgress):
		return task.StatusInProgress
	case string(task.StatusTodo):
		return task.StatusTodo
	default:
		return task.StatusCompleted
	}
}

func FromTask(t task.Task) Task {
	return Task{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    FromPriority(t.Priority),
		Status:      FromStatus(t.Status),
	}
}

func (t Task) ToTask() task.Task {
	desc := t.Description
	if strings.TrimSpace(desc) == "" {
		desc = NoDescription
	}
	return task.Task{
		ID:          t.TaskID,
		Title:       t.Title,
		Description: desc,
		Priority:    ToPriority(t.Priority),
		Status:      ToStatus(t.Status),
	}
}
