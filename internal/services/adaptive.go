package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/data/indexes"
	"github.com/pathlearn/pathlearn-backend/internal/data/repos"
	apperrors "github.com/pathlearn/pathlearn-backend/internal/pkg/errors"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// Difficulty is the three-level scale the adaptive engine steps through.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// Promote returns the next level up, holding at advanced.
func (d Difficulty) Promote() Difficulty {
	switch d {
	case DifficultyBeginner:
		return DifficultyIntermediate
	case DifficultyIntermediate:
		return DifficultyAdvanced
	default:
		return d
	}
}

// Demote returns the next level down, holding at beginner.
func (d Difficulty) Demote() Difficulty {
	switch d {
	case DifficultyAdvanced:
		return DifficultyIntermediate
	case DifficultyIntermediate:
		return DifficultyBeginner
	default:
		return d
	}
}

const (
	adaptiveStateKey = "adaptive_state"

	promoteThreshold = 2.0
	demoteThreshold  = -1.0

	// DefaultMaxQuestions ends an assessment after this many answers unless
	// the Scenario overrides max_questions.
	DefaultMaxQuestions = 10
	// DefaultPassingScore is the pass percentage unless the Scenario
	// overrides passing_score.
	DefaultPassingScore = 70.0

	pointsPerQuestion = 10
)

// AdaptiveState is the rolling assessment state kept inside Program
// metadata under "adaptive_state".
type AdaptiveState struct {
	CurrentDifficulty Difficulty `json:"current_difficulty"`
	QuestionsAnswered int        `json:"questions_answered"`
	PerformanceScore  float64    `json:"performance_score"`
}

// AssessmentResponse is one submitted answer keyed by its Task.
type AssessmentResponse struct {
	TaskID   string         `json:"taskId"`
	Answer   string         `json:"answer"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QuestionResult is the graded outcome for one response.
type QuestionResult struct {
	TaskID  string `json:"taskId"`
	Correct bool   `json:"correct"`
	Points  int    `json:"points"`
}

// AssessmentResult is the final scoring of an assessment Program.
type AssessmentResult struct {
	Score      int              `json:"score"`
	MaxScore   int              `json:"maxScore"`
	Percentage float64          `json:"percentage"`
	Passed     bool             `json:"passed"`
	Questions  []QuestionResult `json:"questions"`
}

// AdaptiveService drives adaptive assessments: it decides when to ask for
// the next question and at what difficulty, while question content comes
// from the injected QuestionSource.
type AdaptiveService interface {
	// StartAssessment initializes the adaptive state. Zero-value initial
	// difficulty falls back to the Scenario's initial_difficulty metadata,
	// then to beginner.
	StartAssessment(ctx context.Context, programID string, initial Difficulty) (*AdaptiveState, error)
	GetState(ctx context.Context, programID string) (*AdaptiveState, error)
	// RecordAnswer folds one answer into the rolling state: +1 for a
	// correct answer, -0.5 (floored at 0) otherwise, then steps the
	// difficulty.
	RecordAnswer(ctx context.Context, programID string, correct bool) (*AdaptiveState, error)
	// NextTask creates the next question Task, or returns nil once the
	// question budget is spent.
	NextTask(ctx context.Context, programID string) (*types.Task, error)
	CalculateAssessmentResults(ctx context.Context, programID string, responses []AssessmentResponse) (*AssessmentResult, error)
}

type adaptiveService struct {
	log       *logger.Logger
	scenarios *repos.ScenarioRepo
	programs  *repos.ProgramRepo
	tasks     *repos.TaskRepo
	indexes   indexes.IndexStore
	source    QuestionSource
	now       func() time.Time
}

func NewAdaptiveService(log *logger.Logger, scenarios *repos.ScenarioRepo, programs *repos.ProgramRepo, tasks *repos.TaskRepo, idx indexes.IndexStore, source QuestionSource) AdaptiveService {
	return &adaptiveService{
		log:       log.With("service", "AdaptiveService"),
		scenarios: scenarios,
		programs:  programs,
		tasks:     tasks,
		indexes:   idx,
		source:    source,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (as *adaptiveService) StartAssessment(ctx context.Context, programID string, initial Difficulty) (*AdaptiveState, error) {
	program, scenario, err := as.loadProgramAndScenario(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !initial.IsValid() {
		initial = DifficultyBeginner
		if scenario.Metadata != nil {
			if v, ok := scenario.Metadata["initial_difficulty"].(string); ok && Difficulty(v).IsValid() {
				initial = Difficulty(v)
			}
		}
	}
	state := &AdaptiveState{CurrentDifficulty: initial}
	if err := as.saveState(ctx, program, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (as *adaptiveService) GetState(ctx context.Context, programID string) (*AdaptiveState, error) {
	program, err := as.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	return stateFromProgram(program), nil
}

func (as *adaptiveService) RecordAnswer(ctx context.Context, programID string, correct bool) (*AdaptiveState, error) {
	program, err := as.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	state := stateFromProgram(program)

	if correct {
		state.PerformanceScore += 1
	} else {
		state.PerformanceScore -= 0.5
		if state.PerformanceScore < 0 {
			state.PerformanceScore = 0
		}
	}
	state.QuestionsAnswered++

	switch {
	case state.PerformanceScore > promoteThreshold:
		if next := state.CurrentDifficulty.Promote(); next != state.CurrentDifficulty {
			as.log.Debug("Promoting difficulty",
				"program_id", programID, "from", state.CurrentDifficulty, "to", next, "score", state.PerformanceScore)
			state.CurrentDifficulty = next
		}
	case state.PerformanceScore < demoteThreshold:
		if next := state.CurrentDifficulty.Demote(); next != state.CurrentDifficulty {
			as.log.Debug("Demoting difficulty",
				"program_id", programID, "from", state.CurrentDifficulty, "to", next, "score", state.PerformanceScore)
			state.CurrentDifficulty = next
		}
	}

	if err := as.saveState(ctx, program, state); err != nil {
		return nil, err
	}
	as.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityAssessmentAnswer,
		UserID:   program.UserID,
		EntityID: programID,
		Metadata: map[string]any{"correct": correct, "difficulty": string(state.CurrentDifficulty)},
	})
	return state, nil
}

func (as *adaptiveService) NextTask(ctx context.Context, programID string) (*types.Task, error) {
	program, scenario, err := as.loadProgramAndScenario(ctx, programID)
	if err != nil {
		return nil, err
	}
	state := stateFromProgram(program)
	if state.QuestionsAnswered >= maxQuestions(scenario) {
		return nil, nil
	}

	questions, err := as.source.Generate(ctx, assessmentDomain(scenario), state.CurrentDifficulty, 1)
	if err != nil {
		return nil, fmt.Errorf("generate question for program %q: %w", programID, err)
	}
	if len(questions) == 0 {
		return nil, nil
	}
	q := questions[0]

	metadata := make(map[string]any, len(q.Metadata)+1)
	for k, v := range q.Metadata {
		metadata[k] = v
	}
	metadata["difficulty"] = string(state.CurrentDifficulty)

	task, err := as.tasks.Create(ctx, &types.Task{
		ProgramID:   programID,
		Title:       q.Title,
		Description: q.Description,
		Type:        q.Type,
		Order:       len(program.TaskIDs) + 1,
		Status:      types.TaskStatusActive,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}
	if _, err := as.programs.Update(ctx, programID, map[string]any{
		"taskIds": append(program.TaskIDs, task.ID),
	}); err != nil {
		return nil, err
	}
	return task, nil
}

func (as *adaptiveService) CalculateAssessmentResults(ctx context.Context, programID string, responses []AssessmentResponse) (*AssessmentResult, error) {
	program, scenario, err := as.loadProgramAndScenario(ctx, programID)
	if err != nil {
		return nil, err
	}

	result := &AssessmentResult{
		MaxScore:  len(responses) * pointsPerQuestion,
		Questions: make([]QuestionResult, 0, len(responses)),
	}
	for _, resp := range responses {
		task, err := as.tasks.FindByID(ctx, resp.TaskID)
		if err != nil {
			return nil, err
		}
		if task == nil || task.ProgramID != program.ID {
			as.log.Warn("Response references unknown task", "program_id", programID, "task_id", resp.TaskID)
			result.Questions = append(result.Questions, QuestionResult{TaskID: resp.TaskID})
			continue
		}

		correct := gradeResponse(task, resp)
		item := QuestionResult{TaskID: resp.TaskID, Correct: correct}
		if correct {
			item.Points = pointsPerQuestion
			result.Score += pointsPerQuestion
		}
		result.Questions = append(result.Questions, item)
	}

	if result.MaxScore > 0 {
		result.Percentage = float64(result.Score) / float64(result.MaxScore) * 100
	}
	result.Passed = result.Percentage >= passingScore(scenario)
	return result, nil
}

// gradeResponse applies the question-type comparator: exact match for
// multiple choice, external-evaluator verdict for open answers.
func gradeResponse(task *types.Task, resp AssessmentResponse) bool {
	questionType := task.Type
	if task.Metadata != nil {
		if v, ok := task.Metadata["question_type"].(string); ok && v != "" {
			questionType = v
		}
	}

	switch questionType {
	case "multiple_choice", "true_false":
		expected, ok := task.Metadata["correct_answer"]
		if !ok {
			return false
		}
		return strings.TrimSpace(fmt.Sprint(expected)) == strings.TrimSpace(resp.Answer)
	default:
		// Open grading is the external evaluator's job; it stamps its
		// verdict into the response metadata.
		if resp.Metadata == nil {
			return false
		}
		verdict, ok := resp.Metadata["correct"].(bool)
		return ok && verdict
	}
}

func maxQuestions(scenario *types.Scenario) int {
	if scenario.Metadata != nil {
		if v, ok := numericMeta(scenario.Metadata, "max_questions"); ok && v > 0 {
			return int(v)
		}
	}
	return DefaultMaxQuestions
}

func passingScore(scenario *types.Scenario) float64 {
	if scenario.Metadata != nil {
		if v, ok := numericMeta(scenario.Metadata, "passing_score"); ok {
			return v
		}
	}
	return DefaultPassingScore
}

func assessmentDomain(scenario *types.Scenario) string {
	if scenario.Metadata != nil {
		if v, ok := scenario.Metadata["domain"].(string); ok && v != "" {
			return v
		}
	}
	return scenario.Title
}

// stateFromProgram decodes adaptive_state out of Program metadata, falling
// back to a fresh beginner state.
func stateFromProgram(program *types.Program) *AdaptiveState {
	state := &AdaptiveState{CurrentDifficulty: DifficultyBeginner}
	if program.Metadata == nil {
		return state
	}
	raw, ok := program.Metadata[adaptiveStateKey]
	if !ok {
		return state
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return state
	}
	var decoded AdaptiveState
	if err := json.Unmarshal(encoded, &decoded); err != nil || !decoded.CurrentDifficulty.IsValid() {
		return state
	}
	return &decoded
}

func (as *adaptiveService) saveState(ctx context.Context, program *types.Program, state *AdaptiveState) error {
	metadata := make(map[string]any, len(program.Metadata)+1)
	for k, v := range program.Metadata {
		metadata[k] = v
	}
	metadata[adaptiveStateKey] = state
	_, err := as.programs.Update(ctx, program.ID, map[string]any{"metadata": metadata})
	return err
}

func (as *adaptiveService) recordActivity(ctx context.Context, event types.ActivityEvent) {
	if err := as.indexes.AddActivity(ctx, event); err != nil {
		as.log.Warn("Activity log append failed", "type", event.Type, "error", err)
	}
}

func (as *adaptiveService) loadProgram(ctx context.Context, programID string) (*types.Program, error) {
	program, err := as.programs.FindByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, fmt.Errorf("program %q: %w", programID, apperrors.ErrNotFound)
	}
	return program, nil
}

func (as *adaptiveService) loadProgramAndScenario(ctx context.Context, programID string) (*types.Program, *types.Scenario, error) {
	program, err := as.loadProgram(ctx, programID)
	if err != nil {
		return nil, nil, err
	}
	scenario, err := as.scenarios.FindByID(ctx, program.ScenarioID)
	if err != nil {
		return nil, nil, err
	}
	if scenario == nil {
		return nil, nil, fmt.Errorf("program %q references missing scenario %q: %w", programID, program.ScenarioID, apperrors.ErrInvariantViolation)
	}
	return program, scenario, nil
}
