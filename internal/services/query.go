package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/data/indexes"
	"github.com/pathlearn/pathlearn-backend/internal/data/repos"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

const (
	learningPathDays = 30
	// retryScoreThreshold is the best-evaluation score below which a
	// completed Program earns a retry recommendation.
	retryScoreThreshold = 80
)

// TaskNode is a Task with its Evaluations.
type TaskNode struct {
	Task        *types.Task         `json:"task"`
	Evaluations []*types.Evaluation `json:"evaluations"`
}

// ProgramNode is a Program with its Task subtree.
type ProgramNode struct {
	Program *types.Program `json:"program"`
	Tasks   []TaskNode     `json:"tasks"`
}

// ScenarioHierarchy is the full Scenario -> Program -> Task -> Evaluation
// traversal.
type ScenarioHierarchy struct {
	Scenario *types.Scenario `json:"scenario"`
	Programs []ProgramNode   `json:"programs"`
}

// LearningPathDay groups one calendar day's activity.
type LearningPathDay struct {
	Date   string                `json:"date"`
	Events []types.ActivityEvent `json:"events"`
}

// LearningPath joins the user index with recent activity.
type LearningPath struct {
	Index *types.UserIndex  `json:"index"`
	Days  []LearningPathDay `json:"days"`
}

// RecommendationReason says why a Scenario was suggested.
type RecommendationReason string

const (
	RecommendationNotAttempted RecommendationReason = "not_attempted"
	RecommendationRetry        RecommendationReason = "retry"
)

type Recommendation struct {
	Scenario *types.Scenario      `json:"scenario"`
	Reason   RecommendationReason `json:"reason"`
	// BestScore is set on retry recommendations.
	BestScore *float64 `json:"bestScore,omitempty"`
}

// LearningStats reduces an activity range into per-type counts, per-day
// minute buckets and an average score.
type LearningStats struct {
	EventCounts   map[string]int     `json:"eventCounts"`
	MinutesPerDay map[string]float64 `json:"minutesPerDay"`
	AverageScore  float64            `json:"averageScore"`
	TotalEvents   int                `json:"totalEvents"`
}

// QueryService composes the repositories and the index store into
// read-only, side-effect-free lookups.
type QueryService interface {
	// GetScenarioHierarchy returns nil (not an error) when the Scenario is
	// absent. O(programs x tasks) point lookups; hierarchies are read
	// rarely and programs-per-scenario stays small.
	GetScenarioHierarchy(ctx context.Context, scenarioID string) (*ScenarioHierarchy, error)
	GetUserLearningPath(ctx context.Context, userID string) (*LearningPath, error)
	GetScenarioRecommendations(ctx context.Context, userID string, limit int) ([]Recommendation, error)
	GetLearningStats(ctx context.Context, userID string, start, end time.Time) (*LearningStats, error)
	// RebuildUserIndex rescans the Program repository and rewrites the
	// user's index — the recovery path for a drifted view.
	RebuildUserIndex(ctx context.Context, userID, email string) (*types.UserIndex, error)
}

type queryService struct {
	log       *logger.Logger
	scenarios *repos.ScenarioRepo
	programs  *repos.ProgramRepo
	tasks     *repos.TaskRepo
	evals     *repos.EvaluationRepo
	indexes   indexes.IndexStore
	now       func() time.Time
}

func NewQueryService(log *logger.Logger, scenarios *repos.ScenarioRepo, programs *repos.ProgramRepo, tasks *repos.TaskRepo, evals *repos.EvaluationRepo, idx indexes.IndexStore) QueryService {
	return &queryService{
		log:       log.With("service", "QueryService"),
		scenarios: scenarios,
		programs:  programs,
		tasks:     tasks,
		evals:     evals,
		indexes:   idx,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (qs *queryService) GetScenarioHierarchy(ctx context.Context, scenarioID string) (*ScenarioHierarchy, error) {
	scenario, err := qs.scenarios.FindByID(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, nil
	}

	programs, err := qs.programs.FindByScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	hierarchy := &ScenarioHierarchy{Scenario: scenario, Programs: make([]ProgramNode, 0, len(programs))}
	for _, program := range programs {
		tasks, err := qs.tasks.FindByProgram(ctx, program.ID)
		if err != nil {
			return nil, err
		}
		node := ProgramNode{Program: program, Tasks: make([]TaskNode, 0, len(tasks))}
		for _, task := range tasks {
			evals, err := qs.evals.FindByEntity(ctx, types.EvaluationEntityTask, task.ID)
			if err != nil {
				return nil, err
			}
			node.Tasks = append(node.Tasks, TaskNode{Task: task, Evaluations: evals})
		}
		hierarchy.Programs = append(hierarchy.Programs, node)
	}
	return hierarchy, nil
}

func (qs *queryService) GetUserLearningPath(ctx context.Context, userID string) (*LearningPath, error) {
	idx, err := qs.indexes.GetUserIndex(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := qs.indexes.GetUserRecentActivity(ctx, userID, learningPathDays)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]types.ActivityEvent)
	var order []string
	for _, e := range events {
		date := e.Timestamp.UTC().Format("2006-01-02")
		if _, seen := byDate[date]; !seen {
			order = append(order, date)
		}
		byDate[date] = append(byDate[date], e)
	}

	path := &LearningPath{Index: idx, Days: make([]LearningPathDay, 0, len(order))}
	for _, date := range order {
		path.Days = append(path.Days, LearningPathDay{Date: date, Events: byDate[date]})
	}
	return path, nil
}

func (qs *queryService) GetScenarioRecommendations(ctx context.Context, userID string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		return nil, nil
	}
	all, err := qs.scenarios.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := qs.indexes.GetUserIndex(ctx, userID)
	if err != nil {
		return nil, err
	}

	attempted := make(map[string]bool)
	completed := make(map[string][]string) // scenarioID -> completed programIDs
	if idx != nil {
		for _, ps := range idx.Programs {
			attempted[ps.ScenarioID] = true
			if ps.Status == types.ProgramStatusCompleted {
				completed[ps.ScenarioID] = append(completed[ps.ScenarioID], ps.ProgramID)
			}
		}
	}

	var recs []Recommendation
	for _, scenario := range all {
		if len(recs) >= limit {
			break
		}
		if !attempted[scenario.ID] {
			recs = append(recs, Recommendation{Scenario: scenario, Reason: RecommendationNotAttempted})
		}
	}
	for _, scenario := range all {
		if len(recs) >= limit {
			break
		}
		programIDs, ok := completed[scenario.ID]
		if !ok {
			continue
		}
		best, found, err := qs.bestProgramScore(ctx, programIDs)
		if err != nil {
			return nil, err
		}
		if found && best < retryScoreThreshold {
			score := best
			recs = append(recs, Recommendation{Scenario: scenario, Reason: RecommendationRetry, BestScore: &score})
		}
	}
	return recs, nil
}

func (qs *queryService) bestProgramScore(ctx context.Context, programIDs []string) (float64, bool, error) {
	best := 0.0
	found := false
	for _, programID := range programIDs {
		evals, err := qs.evals.FindByProgram(ctx, programID)
		if err != nil {
			return 0, false, err
		}
		for _, e := range evals {
			if score, ok := e.Score(); ok {
				if !found || score > best {
					best = score
					found = true
				}
			}
		}
	}
	return best, found, nil
}

func (qs *queryService) GetLearningStats(ctx context.Context, userID string, start, end time.Time) (*LearningStats, error) {
	events, err := qs.indexes.GetActivityRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := &LearningStats{
		EventCounts:   make(map[string]int),
		MinutesPerDay: make(map[string]float64),
	}
	scoreSum := 0.0
	scoreCount := 0
	for _, e := range events {
		if e.UserID != userID {
			continue
		}
		stats.TotalEvents++
		stats.EventCounts[e.Type]++
		if e.Metadata == nil {
			continue
		}
		day := e.Timestamp.UTC().Format("2006-01-02")
		if minutes, ok := numericMeta(e.Metadata, "durationMinutes"); ok {
			stats.MinutesPerDay[day] += minutes
		}
		if score, ok := numericMeta(e.Metadata, "score"); ok {
			scoreSum += score
			scoreCount++
		}
	}
	if scoreCount > 0 {
		stats.AverageScore = scoreSum / float64(scoreCount)
	}
	return stats, nil
}

func (qs *queryService) RebuildUserIndex(ctx context.Context, userID, email string) (*types.UserIndex, error) {
	programs, err := qs.programs.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx, err := qs.indexes.RebuildUserIndex(ctx, userID, email, programs)
	if err != nil {
		return nil, fmt.Errorf("rebuild user index %q: %w", userID, err)
	}
	return idx, nil
}

func numericMeta(metadata map[string]any, key string) (float64, bool) {
	switch v := metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
