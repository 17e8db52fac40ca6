package types

import "time"

// TaskStatus is the lifecycle state of a single Task. Transitions are
// one-directional: pending -> active -> completed | skipped.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusActive, TaskStatusCompleted, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusSkipped
}

// CanTransitionTo enforces the one-directional state machine.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusActive
	case TaskStatusActive:
		return next == TaskStatusCompleted || next == TaskStatusSkipped
	default:
		return false
	}
}

// Task is one step within a Program. Order is 1-based and unique within the
// owning Program. At most one Task per Program is active at a time.
type Task struct {
	Base
	ProgramID   string         `json:"programId"`
	TemplateID  string         `json:"templateId,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"`
	Order       int            `json:"order"`
	Status      TaskStatus     `json:"status"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Response    map[string]any `json:"response,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
