// Package tasks provides the task CRUD client and an optimistic list store
// that applies mutations locally before reconciling them with the server's
// returned representation.
package tasks

import (
	"time"

	"github.com/jrsteele09/go-todo-client/session"
)

// RepeatType describes a task's recurrence.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

// TaggedUser links another user to a task.
type TaggedUser struct {
	TaskID string        `json:"taskId"`
	UserID string        `json:"userId"`
	User   *session.User `json:"user,omitempty"`
}

// Task is the remote API's task representation. Done maps to the wire field
// "status".
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Done        bool         `json:"status"`
	Priority    int          `json:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Reminder    *time.Time   `json:"reminder,omitempty"`
	JobKey      string       `json:"jobKey,omitempty"`
	RepeatType  RepeatType   `json:"repeatType"`
	TaggedUsers []TaggedUser `json:"taggedUsers,omitempty"`
}

// Draft is the client-supplied portion of a new task: every Task field minus
// the server-assigned id and userId.
type Draft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Done        bool       `json:"status"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Reminder    *time.Time `json:"reminder,omitempty"`
	RepeatType  RepeatType `json:"repeatType"`
}

// Patch is a partial task update. Nil fields are left unchanged by the server.
type Patch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Done        *bool       `json:"status,omitempty"`
	Priority    *int        `json:"priority,omitempty"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Reminder    *time.Time  `json:"reminder,omitempty"`
	RepeatType  *RepeatType `json:"repeatType,omitempty"`
}

// applyTo returns a copy of task with the patch's non-nil fields applied,
// mirroring the server's merge semantics for the optimistic local update.
func (p Patch) applyTo(task Task) Task {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Done != nil {
		task.Done = *p.Done
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.DueDate != nil {
		task.DueDate = p.DueDate
	}
	if p.Reminder != nil {
		task.Reminder = p.Reminder
	}
	if p.RepeatType != nil {
		task.RepeatType = *p.RepeatType
	}
	return task
}
