package types

import "time"

// UserProgramSummary is the per-Program row kept inside a UserIndex.
type UserProgramSummary struct {
	ProgramID   string        `json:"programId"`
	ScenarioID  string        `json:"scenarioId"`
	Status      ProgramStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// UserIndex is a materialized view of one user's Programs. Rebuildable from
// a Program scan; never the source of truth.
type UserIndex struct {
	UserID      string               `json:"userId"`
	Email       string               `json:"email,omitempty"`
	Programs    []UserProgramSummary `json:"programs"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

// ScenarioStats carries incrementally maintained counters per Scenario.
type ScenarioStats struct {
	ScenarioID        string    `json:"scenarioId"`
	TotalPrograms     int       `json:"totalPrograms"`
	ActivePrograms    int       `json:"activePrograms"`
	CompletedPrograms int       `json:"completedPrograms"`
	LastActivity      time.Time `json:"lastActivity"`
}

// ActivityEvent is one entry of a daily activity log.
type ActivityEvent struct {
	Type      string         `json:"type"`
	UserID    string         `json:"userId"`
	Timestamp time.Time      `json:"timestamp"`
	EntityID  string         `json:"entityId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Activity event types recorded by the progression and adaptive engines.
const (
	ActivityProgramStarted    = "program_started"
	ActivityTaskCompleted     = "task_completed"
	ActivityTaskSkipped       = "task_skipped"
	ActivityProgramCompleted  = "program_completed"
	ActivityProgramAbandoned  = "program_abandoned"
	ActivityEvaluationCreated = "evaluation_created"
	ActivityAssessmentAnswer  = "assessment_answer"
)

// DailyActivityLog holds one calendar day's events, append-only.
type DailyActivityLog struct {
	Date   string          `json:"date"` // YYYY-MM-DD, UTC
	Events []ActivityEvent `json:"events"`
}
