package types

import "time"

// ProgramStatus is the lifecycle state of a learner's Program.
type ProgramStatus string

const (
	ProgramStatusActive    ProgramStatus = "active"
	ProgramStatusCompleted ProgramStatus = "completed"
	ProgramStatusAbandoned ProgramStatus = "abandoned"
)

func (s ProgramStatus) IsValid() bool {
	switch s {
	case ProgramStatusActive, ProgramStatusCompleted, ProgramStatusAbandoned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further transition.
func (s ProgramStatus) IsTerminal() bool {
	return s == ProgramStatusCompleted || s == ProgramStatusAbandoned
}

// Program is one learner's instantiation of a Scenario.
//
// Invariants: CurrentTaskIndex is always in [0, len(TaskIDs)];
// status completed implies CompletedAt is set and
// CurrentTaskIndex == len(TaskIDs).
type Program struct {
	Base
	ScenarioID       string         `json:"scenarioId"`
	UserID           string         `json:"userId"`
	Status           ProgramStatus  `json:"status"`
	StartedAt        time.Time      `json:"startedAt"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	TaskIDs          []string       `json:"taskIds"`
	CurrentTaskIndex int            `json:"currentTaskIndex"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}
