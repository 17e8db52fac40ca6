package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/data/indexes"
	"github.com/pathlearn/pathlearn-backend/internal/data/repos"
	apperrors "github.com/pathlearn/pathlearn-backend/internal/pkg/errors"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// CompleteTaskResult is what a learner's submission produces: the finished
// Task, its Evaluation (nil for skips), and the Task that became current
// (nil when the Program just finished).
type CompleteTaskResult struct {
	Task             *types.Task
	Evaluation       *types.Evaluation
	NextTask         *types.Task
	ProgramCompleted bool
}

// ProgramStatus is the full picture of one Program for reporting.
type ProgramStatus struct {
	Program     *types.Program
	Scenario    *types.Scenario
	Tasks       []*types.Task
	Evaluations []*types.Evaluation
	CurrentTask *types.Task
	// CompletionRate is completedTasks/totalTasks*100, zero for an empty
	// task list.
	CompletionRate float64
}

// ProgressionService advances learners through Scenario-derived Programs.
// Its multi-step writes are deliberately non-transactional: each step is a
// separate store write, and partial completion is detected and repaired
// (RepairProgram) rather than rolled back.
type ProgressionService interface {
	CreateLearningProgram(ctx context.Context, scenarioID, userID string, metadata map[string]any) (*types.Program, []*types.Task, error)
	CompleteTask(ctx context.Context, taskID, userID string, response map[string]any, evaluationOverrides map[string]any) (*CompleteTaskResult, error)
	SkipTask(ctx context.Context, taskID, userID string) (*CompleteTaskResult, error)
	CompleteProgram(ctx context.Context, programID, userID string, evaluationOverrides map[string]any) ([]*types.Evaluation, error)
	AbandonProgram(ctx context.Context, programID, userID string) (*types.Program, error)
	// RepairProgram creates the Tasks missing after a crash between Program
	// creation and task creation. Idempotent.
	RepairProgram(ctx context.Context, programID string) ([]*types.Task, error)
	GetProgramStatus(ctx context.Context, programID string) (*ProgramStatus, error)
}

type progressionService struct {
	log       *logger.Logger
	scenarios *repos.ScenarioRepo
	programs  *repos.ProgramRepo
	tasks     *repos.TaskRepo
	evals     *repos.EvaluationRepo
	indexes   indexes.IndexStore
	now       func() time.Time
}

func NewProgressionService(log *logger.Logger, scenarios *repos.ScenarioRepo, programs *repos.ProgramRepo, tasks *repos.TaskRepo, evals *repos.EvaluationRepo, idx indexes.IndexStore) ProgressionService {
	return &progressionService{
		log:       log.With("service", "ProgressionService"),
		scenarios: scenarios,
		programs:  programs,
		tasks:     tasks,
		evals:     evals,
		indexes:   idx,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (ps *progressionService) CreateLearningProgram(ctx context.Context, scenarioID, userID string, metadata map[string]any) (*types.Program, []*types.Task, error) {
	scenario, err := ps.scenarios.FindByID(ctx, scenarioID)
	if err != nil {
		return nil, nil, err
	}
	if scenario == nil {
		return nil, nil, fmt.Errorf("scenario %q: %w", scenarioID, apperrors.ErrNotFound)
	}
	if userID == "" {
		return nil, nil, fmt.Errorf("user id required: %w", apperrors.ErrInvalidArgument)
	}

	program, err := ps.programs.Create(ctx, &types.Program{
		ScenarioID: scenarioID,
		UserID:     userID,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, nil, err
	}

	tasks := make([]*types.Task, 0, len(scenario.TaskTemplates))
	taskIDs := make([]string, 0, len(scenario.TaskTemplates))
	for i, tmpl := range scenario.TaskTemplates {
		task, err := ps.tasks.Create(ctx, &types.Task{
			ProgramID:   program.ID,
			TemplateID:  tmpl.ID,
			Title:       tmpl.Title,
			Description: tmpl.Description,
			Type:        tmpl.Type,
			Order:       i + 1,
			Metadata:    tmpl.Metadata,
		})
		if err != nil {
			// Partial creation: the Program exists with fewer tasks than its
			// template. RepairProgram resumes from here.
			return nil, nil, fmt.Errorf("create task %d/%d for program %q: %w", i+1, len(scenario.TaskTemplates), program.ID, err)
		}
		tasks = append(tasks, task)
		taskIDs = append(taskIDs, task.ID)
	}

	program, err = ps.programs.Update(ctx, program.ID, map[string]any{"taskIds": taskIDs})
	if err != nil {
		return nil, nil, err
	}

	// Policy: the first Task becomes active as soon as the Program exists,
	// so an active Program with tasks always has exactly one active Task.
	if len(tasks) > 0 {
		first, err := ps.tasks.Update(ctx, tasks[0].ID, map[string]any{
			"status":    types.TaskStatusActive,
			"startedAt": ps.now(),
		})
		if err != nil {
			return nil, nil, err
		}
		tasks[0] = first
	}

	ps.recordProgramIndexes(ctx, program, indexes.StatsDelta{TotalPrograms: 1, ActivePrograms: 1})
	ps.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityProgramStarted,
		UserID:   userID,
		EntityID: program.ID,
		Metadata: map[string]any{"scenarioId": scenarioID},
	})

	ps.log.Info("Created learning program",
		"program_id", program.ID, "scenario_id", scenarioID, "user_id", userID, "tasks", len(tasks))
	return program, tasks, nil
}

func (ps *progressionService) CompleteTask(ctx context.Context, taskID, userID string, response map[string]any, evaluationOverrides map[string]any) (*CompleteTaskResult, error) {
	task, program, err := ps.loadTaskAndProgram(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.CanTransitionTo(types.TaskStatusCompleted) {
		return nil, fmt.Errorf("task %q is %s, cannot complete: %w", taskID, task.Status, apperrors.ErrInvalidArgument)
	}

	updates := map[string]any{
		"status":      types.TaskStatusCompleted,
		"completedAt": ps.now(),
	}
	if response != nil {
		updates["response"] = response
	}
	task, err = ps.tasks.Update(ctx, taskID, updates)
	if err != nil {
		return nil, err
	}

	evaluation, err := ps.createEvaluation(ctx, types.EvaluationEntityTask, task.ID, program.ID, userID, evaluationOverrides)
	if err != nil {
		return nil, err
	}

	nextTask, program, completed, err := ps.advanceProgram(ctx, program)
	if err != nil {
		return nil, err
	}

	ps.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityTaskCompleted,
		UserID:   userID,
		EntityID: task.ID,
		Metadata: map[string]any{"programId": program.ID, "order": task.Order},
	})
	if completed {
		ps.recordCompletion(ctx, program, userID)
	} else {
		ps.recordProgramIndexes(ctx, program, indexes.StatsDelta{})
	}

	return &CompleteTaskResult{
		Task:             task,
		Evaluation:       evaluation,
		NextTask:         nextTask,
		ProgramCompleted: completed,
	}, nil
}

func (ps *progressionService) SkipTask(ctx context.Context, taskID, userID string) (*CompleteTaskResult, error) {
	task, program, err := ps.loadTaskAndProgram(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.CanTransitionTo(types.TaskStatusSkipped) {
		return nil, fmt.Errorf("task %q is %s, cannot skip: %w", taskID, task.Status, apperrors.ErrInvalidArgument)
	}

	task, err = ps.tasks.Update(ctx, taskID, map[string]any{
		"status":      types.TaskStatusSkipped,
		"completedAt": ps.now(),
	})
	if err != nil {
		return nil, err
	}

	nextTask, program, completed, err := ps.advanceProgram(ctx, program)
	if err != nil {
		return nil, err
	}

	ps.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityTaskSkipped,
		UserID:   userID,
		EntityID: task.ID,
		Metadata: map[string]any{"programId": program.ID, "order": task.Order},
	})
	if completed {
		ps.recordCompletion(ctx, program, userID)
	} else {
		ps.recordProgramIndexes(ctx, program, indexes.StatsDelta{})
	}

	return &CompleteTaskResult{Task: task, NextTask: nextTask, ProgramCompleted: completed}, nil
}

func (ps *progressionService) CompleteProgram(ctx context.Context, programID, userID string, evaluationOverrides map[string]any) ([]*types.Evaluation, error) {
	program, err := ps.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.Status.IsTerminal() {
		return nil, fmt.Errorf("program %q already %s: %w", programID, program.Status, apperrors.ErrInvalidArgument)
	}

	program, err = ps.programs.Update(ctx, programID, map[string]any{
		"status":           types.ProgramStatusCompleted,
		"completedAt":      ps.now(),
		"currentTaskIndex": len(program.TaskIDs),
	})
	if err != nil {
		return nil, err
	}

	overrides := map[string]any{"type": types.EvaluationTypeProgramCompletion}
	for k, v := range evaluationOverrides {
		overrides[k] = v
	}
	if _, err := ps.createEvaluation(ctx, types.EvaluationEntityProgram, program.ID, program.ID, userID, overrides); err != nil {
		return nil, err
	}

	ps.recordCompletion(ctx, program, userID)

	return ps.evals.FindByProgram(ctx, programID)
}

func (ps *progressionService) AbandonProgram(ctx context.Context, programID, userID string) (*types.Program, error) {
	program, err := ps.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.Status.IsTerminal() {
		return nil, fmt.Errorf("program %q already %s: %w", programID, program.Status, apperrors.ErrInvalidArgument)
	}

	program, err = ps.programs.Update(ctx, programID, map[string]any{
		"status": types.ProgramStatusAbandoned,
	})
	if err != nil {
		return nil, err
	}

	ps.recordProgramIndexes(ctx, program, indexes.StatsDelta{ActivePrograms: -1})
	ps.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityProgramAbandoned,
		UserID:   userID,
		EntityID: program.ID,
	})
	ps.log.Info("Abandoned program", "program_id", programID, "user_id", userID)
	return program, nil
}

func (ps *progressionService) RepairProgram(ctx context.Context, programID string) ([]*types.Task, error) {
	program, err := ps.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	scenario, err := ps.scenarios.FindByID(ctx, program.ScenarioID)
	if err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, fmt.Errorf("program %q references missing scenario %q: %w", programID, program.ScenarioID, apperrors.ErrInvariantViolation)
	}

	existing, err := ps.tasks.FindByProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	haveOrder := make(map[int]*types.Task, len(existing))
	for _, t := range existing {
		haveOrder[t.Order] = t
	}

	var created []*types.Task
	taskIDs := make([]string, 0, len(scenario.TaskTemplates))
	for i, tmpl := range scenario.TaskTemplates {
		if t, ok := haveOrder[i+1]; ok {
			taskIDs = append(taskIDs, t.ID)
			continue
		}
		task, err := ps.tasks.Create(ctx, &types.Task{
			ProgramID:   programID,
			TemplateID:  tmpl.ID,
			Title:       tmpl.Title,
			Description: tmpl.Description,
			Type:        tmpl.Type,
			Order:       i + 1,
			Metadata:    tmpl.Metadata,
		})
		if err != nil {
			return nil, err
		}
		created = append(created, task)
		taskIDs = append(taskIDs, task.ID)
	}

	if len(created) > 0 || len(taskIDs) != len(program.TaskIDs) {
		if _, err := ps.programs.Update(ctx, programID, map[string]any{"taskIds": taskIDs}); err != nil {
			return nil, err
		}
		ps.log.Info("Repaired program task list",
			"program_id", programID, "created", len(created), "total", len(taskIDs))
	}
	return created, nil
}

func (ps *progressionService) GetProgramStatus(ctx context.Context, programID string) (*ProgramStatus, error) {
	program, err := ps.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	scenario, err := ps.scenarios.FindByID(ctx, program.ScenarioID)
	if err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, fmt.Errorf("program %q references missing scenario %q: %w", programID, program.ScenarioID, apperrors.ErrInvariantViolation)
	}
	tasks, err := ps.tasks.FindByProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	evals, err := ps.evals.FindByProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	var current *types.Task
	if program.CurrentTaskIndex < len(program.TaskIDs) {
		currentID := program.TaskIDs[program.CurrentTaskIndex]
		for _, t := range tasks {
			if t.ID == currentID {
				current = t
				break
			}
		}
	}

	rate := 0.0
	if len(tasks) > 0 {
		done := 0
		for _, t := range tasks {
			if t.Status == types.TaskStatusCompleted {
				done++
			}
		}
		rate = float64(done) / float64(len(tasks)) * 100
	}

	return &ProgramStatus{
		Program:        program,
		Scenario:       scenario,
		Tasks:          tasks,
		Evaluations:    evals,
		CurrentTask:    current,
		CompletionRate: rate,
	}, nil
}

// advanceProgram moves the cursor after a terminal task transition: either
// activates the next pending Task or completes the Program. No locking —
// concurrent completions are last-write-wins at the store layer.
func (ps *progressionService) advanceProgram(ctx context.Context, program *types.Program) (*types.Task, *types.Program, bool, error) {
	if program.CurrentTaskIndex+1 < len(program.TaskIDs) {
		next := program.CurrentTaskIndex + 1
		program, err := ps.programs.Update(ctx, program.ID, map[string]any{"currentTaskIndex": next})
		if err != nil {
			return nil, nil, false, err
		}
		nextTask, err := ps.tasks.FindByID(ctx, program.TaskIDs[next])
		if err != nil {
			return nil, nil, false, err
		}
		if nextTask == nil {
			return nil, nil, false, fmt.Errorf("program %q references missing task %q: %w", program.ID, program.TaskIDs[next], apperrors.ErrInvariantViolation)
		}
		if nextTask.Status == types.TaskStatusPending {
			nextTask, err = ps.tasks.Update(ctx, nextTask.ID, map[string]any{
				"status":    types.TaskStatusActive,
				"startedAt": ps.now(),
			})
			if err != nil {
				return nil, nil, false, err
			}
		}
		return nextTask, program, false, nil
	}

	program, err := ps.programs.Update(ctx, program.ID, map[string]any{
		"status":           types.ProgramStatusCompleted,
		"completedAt":      ps.now(),
		"currentTaskIndex": len(program.TaskIDs),
	})
	if err != nil {
		return nil, nil, false, err
	}
	return nil, program, true, nil
}

func (ps *progressionService) createEvaluation(ctx context.Context, entityType types.EvaluationEntityType, entityID, programID, userID string, overrides map[string]any) (*types.Evaluation, error) {
	evalType := types.EvaluationTypeAIFeedback
	metadata := make(map[string]any, len(overrides))
	for k, v := range overrides {
		if k == "type" {
			switch t := v.(type) {
			case types.EvaluationType:
				if t.IsValid() {
					evalType = t
				}
			case string:
				if types.EvaluationType(t).IsValid() {
					evalType = types.EvaluationType(t)
				}
			}
			continue
		}
		metadata[k] = v
	}

	evaluation, err := ps.evals.Create(ctx, &types.Evaluation{
		EntityType: entityType,
		EntityID:   entityID,
		ProgramID:  programID,
		UserID:     userID,
		Type:       evalType,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}
	ps.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityEvaluationCreated,
		UserID:   userID,
		EntityID: evaluation.ID,
		Metadata: map[string]any{"entityType": string(entityType), "entityId": entityID},
	})
	return evaluation, nil
}

func (ps *progressionService) recordCompletion(ctx context.Context, program *types.Program, userID string) {
	ps.recordProgramIndexes(ctx, program, indexes.StatsDelta{ActivePrograms: -1, CompletedPrograms: 1})
	ps.recordActivity(ctx, types.ActivityEvent{
		Type:     types.ActivityProgramCompleted,
		UserID:   userID,
		EntityID: program.ID,
		Metadata: map[string]any{"scenarioId": program.ScenarioID},
	})
}

// recordProgramIndexes refreshes the derived views. Index failures are
// logged, not propagated: the views are rebuildable and never the source of
// truth, so a stale index must not fail the entity write it describes.
func (ps *progressionService) recordProgramIndexes(ctx context.Context, program *types.Program, delta indexes.StatsDelta) {
	summary := types.UserProgramSummary{
		ProgramID:   program.ID,
		ScenarioID:  program.ScenarioID,
		Status:      program.Status,
		StartedAt:   program.StartedAt,
		CompletedAt: program.CompletedAt,
	}
	if err := ps.indexes.UpdateUserIndex(ctx, program.UserID, "", summary); err != nil {
		ps.log.Warn("User index update failed", "user_id", program.UserID, "program_id", program.ID, "error", err)
	}
	if err := ps.indexes.UpdateScenarioStats(ctx, program.ScenarioID, delta); err != nil {
		ps.log.Warn("Scenario stats update failed", "scenario_id", program.ScenarioID, "error", err)
	}
}

func (ps *progressionService) recordActivity(ctx context.Context, event types.ActivityEvent) {
	if err := ps.indexes.AddActivity(ctx, event); err != nil {
		ps.log.Warn("Activity log append failed", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}

func (ps *progressionService) loadProgram(ctx context.Context, programID string) (*types.Program, error) {
	program, err := ps.programs.FindByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, fmt.Errorf("program %q: %w", programID, apperrors.ErrNotFound)
	}
	return program, nil
}

func (ps *progressionService) loadTaskAndProgram(ctx context.Context, taskID string) (*types.Task, *types.Program, error) {
	task, err := ps.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, fmt.Errorf("task %q: %w", taskID, apperrors.ErrNotFound)
	}
	program, err := ps.programs.FindByID(ctx, task.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if program == nil {
		return nil, nil, fmt.Errorf("task %q belongs to missing program %q: %w", taskID, task.ProgramID, apperrors.ErrInvariantViolation)
	}
	return task, program, nil
}
