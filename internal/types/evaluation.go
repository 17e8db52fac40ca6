package types

// EvaluationEntityType says whether an Evaluation is attached to a Task or
// a whole Program.
type EvaluationEntityType string

const (
	EvaluationEntityTask    EvaluationEntityType = "task"
	EvaluationEntityProgram EvaluationEntityType = "program"
)

// EvaluationType categorizes how an assessment was produced.
type EvaluationType string

const (
	EvaluationTypeAIFeedback        EvaluationType = "ai_feedback"
	EvaluationTypePeerReview        EvaluationType = "peer_review"
	EvaluationTypeSelfAssessment    EvaluationType = "self_assessment"
	EvaluationTypeAutoGrading       EvaluationType = "auto_grading"
	EvaluationTypeProgramCompletion EvaluationType = "program_completion"
)

func (t EvaluationType) IsValid() bool {
	switch t {
	case EvaluationTypeAIFeedback, EvaluationTypePeerReview,
		EvaluationTypeSelfAssessment, EvaluationTypeAutoGrading,
		EvaluationTypeProgramCompletion:
		return true
	default:
		return false
	}
}

// Evaluation is an append-only assessment record. Updates may correct
// Metadata; EntityType, EntityID, ProgramID and UserID never change after
// creation.
type Evaluation struct {
	Base
	EntityType EvaluationEntityType `json:"entityType"`
	EntityID   string               `json:"entityId"`
	// ProgramID is denormalized for fast program-scoped queries.
	ProgramID string         `json:"programId"`
	UserID    string         `json:"userId"`
	Type      EvaluationType `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Score extracts a numeric score from Metadata if one is present.
func (e *Evaluation) Score() (float64, bool) {
	if e == nil || e.Metadata == nil {
		return 0, false
	}
	switch v := e.Metadata["score"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
