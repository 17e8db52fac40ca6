package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/types"
)

func TestGetScenarioHierarchyMissingScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	hierarchy, err := f.query.GetScenarioHierarchy(ctx, "ghost")
	if err != nil {
		t.Fatalf("GetScenarioHierarchy failed: %v", err)
	}
	if hierarchy != nil {
		t.Fatalf("hierarchy for missing scenario = %+v, want nil", hierarchy)
	}
}

func TestGetScenarioHierarchy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	scenario := f.seedScenario(t, "Genetics", 2, nil)

	_, tasks, err := f.progression.CreateLearningProgram(ctx, scenario.ID, "user-1", nil)
	if err != nil {
		t.Fatalf("CreateLearningProgram failed: %v", err)
	}
	if _, err := f.progression.CompleteTask(ctx, tasks[0].ID, "user-1", nil, map[string]any{"score": 75}); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	hierarchy, err := f.query.GetScenarioHierarchy(ctx, scenario.ID)
	if err != nil {
		t.Fatalf("GetScenarioHierarchy failed: %v", err)
	}
	if hierarchy.Scenario.ID != scenario.ID {
		t.Fatalf("scenario = %q, want %q", hierarchy.Scenario.ID, scenario.ID)
	}
	if len(hierarchy.Programs) != 1 {
		t.Fatalf("programs = %d, want 1", len(hierarchy.Programs))
	}
	node := hierarchy.Programs[0]
	if len(node.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(node.Tasks))
	}
	if node.Tasks[0].Task.Order != 1 || node.Tasks[1].Task.Order != 2 {
		t.Fatal("tasks not in order")
	}
	if len(node.Tasks[0].Evaluations) != 1 {
		t.Fatalf("completed task evaluations = %d, want 1", len(node.Tasks[0].Evaluations))
	}
	if len(node.Tasks[1].Evaluations) != 0 {
		t.Fatalf("untouched task evaluations = %d, want 0", len(node.Tasks[1].Evaluations))
	}
}

func TestGetScenarioRecommendationsNotAttempted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	for i := 0; i < 8; i++ {
		f.seedScenario(t, fmt.Sprintf("Scenario %d", i), 1, nil)
	}

	recs, err := f.query.GetScenarioRecommendations(ctx, "fresh-user", 5)
	if err != nil {
		t.Fatalf("GetScenarioRecommendations failed: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("recommendations = %d, want limit of 5", len(recs))
	}
	seen := make(map[string]bool)
	for _, rec := range recs {
		if rec.Reason != RecommendationNotAttempted {
			t.Fatalf("reason = %q, want not_attempted", rec.Reason)
		}
		if seen[rec.Scenario.ID] {
			t.Fatalf("duplicate scenario %q recommended", rec.Scenario.ID)
		}
		seen[rec.Scenario.ID] = true
	}
}

func TestGetScenarioRecommendationsRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	low := f.seedScenario(t, "Low score", 1, nil)
	high := f.seedScenario(t, "High score", 1, nil)

	for _, tc := range []struct {
		scenario *types.Scenario
		score    float64
	}{
		{low, 60},
		{high, 95},
	} {
		program, _, err := f.progression.CreateLearningProgram(ctx, tc.scenario.ID, "user-1", nil)
		if err != nil {
			t.Fatalf("CreateLearningProgram failed: %v", err)
		}
		if _, err := f.progression.CompleteProgram(ctx, program.ID, "user-1", map[string]any{"score": tc.score}); err != nil {
			t.Fatalf("CompleteProgram failed: %v", err)
		}
	}

	recs, err := f.query.GetScenarioRecommendations(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("GetScenarioRecommendations failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("recommendations = %+v, want only the low-score retry", recs)
	}
	if recs[0].Reason != RecommendationRetry || recs[0].Scenario.ID != low.ID {
		t.Fatalf("recommendation = %+v, want retry of %q", recs[0], low.ID)
	}
	if recs[0].BestScore == nil || *recs[0].BestScore != 60 {
		t.Fatalf("bestScore = %v, want 60", recs[0].BestScore)
	}
}

func TestGetScenarioRecommendationsZeroLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seedScenario(t, "Any", 1, nil)

	recs, err := f.query.GetScenarioRecommendations(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("GetScenarioRecommendations failed: %v", err)
	}
	if recs != nil {
		t.Fatalf("recommendations = %+v, want nil for zero limit", recs)
	}
}

func TestGetUserLearningPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	scenario := f.seedScenario(t, "Astronomy", 2, nil)

	_, tasks, err := f.progression.CreateLearningProgram(ctx, scenario.ID, "user-1", nil)
	if err != nil {
		t.Fatalf("CreateLearningProgram failed: %v", err)
	}
	if _, err := f.progression.CompleteTask(ctx, tasks[0].ID, "user-1", nil, nil); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	path, err := f.query.GetUserLearningPath(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserLearningPath failed: %v", err)
	}
	if path.Index == nil || len(path.Index.Programs) != 1 {
		t.Fatalf("index = %+v, want one program", path.Index)
	}
	if len(path.Days) != 1 {
		t.Fatalf("days = %d, want all of today's events in one bucket", len(path.Days))
	}
	if len(path.Days[0].Events) < 2 {
		t.Fatalf("events today = %d, want at least program_started and task_completed", len(path.Days[0].Events))
	}
}

func TestGetLearningStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	now := time.Now().UTC()
	for _, e := range []types.ActivityEvent{
		{Type: types.ActivityTaskCompleted, UserID: "user-1", Timestamp: now, Metadata: map[string]any{"durationMinutes": 20.0, "score": 80.0}},
		{Type: types.ActivityTaskCompleted, UserID: "user-1", Timestamp: now, Metadata: map[string]any{"durationMinutes": 10.0, "score": 60.0}},
		{Type: types.ActivityProgramStarted, UserID: "user-1", Timestamp: now},
		{Type: types.ActivityTaskCompleted, UserID: "someone-else", Timestamp: now, Metadata: map[string]any{"score": 100.0}},
	} {
		if err := f.indexes.AddActivity(ctx, e); err != nil {
			t.Fatalf("AddActivity failed: %v", err)
		}
	}

	stats, err := f.query.GetLearningStats(ctx, "user-1", now.AddDate(0, 0, -1), now)
	if err != nil {
		t.Fatalf("GetLearningStats failed: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Fatalf("totalEvents = %d, want 3 (other user excluded)", stats.TotalEvents)
	}
	if stats.EventCounts[types.ActivityTaskCompleted] != 2 {
		t.Fatalf("task_completed count = %d, want 2", stats.EventCounts[types.ActivityTaskCompleted])
	}
	day := now.Format("2006-01-02")
	if stats.MinutesPerDay[day] != 30 {
		t.Fatalf("minutes for %s = %v, want 30", day, stats.MinutesPerDay[day])
	}
	if stats.AverageScore != 70 {
		t.Fatalf("averageScore = %v, want 70", stats.AverageScore)
	}
}

func TestRebuildUserIndexFromProgramScan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	scenario := f.seedScenario(t, "Rebuild", 1, nil)

	if _, _, err := f.progression.CreateLearningProgram(ctx, scenario.ID, "user-1", nil); err != nil {
		t.Fatalf("CreateLearningProgram failed: %v", err)
	}
	if _, _, err := f.progression.CreateLearningProgram(ctx, scenario.ID, "user-2", nil); err != nil {
		t.Fatalf("CreateLearningProgram failed: %v", err)
	}

	idx, err := f.query.RebuildUserIndex(ctx, "user-1", "u1@example.com")
	if err != nil {
		t.Fatalf("RebuildUserIndex failed: %v", err)
	}
	if len(idx.Programs) != 1 {
		t.Fatalf("rebuilt programs = %d, want 1", len(idx.Programs))
	}
	if idx.Email != "u1@example.com" {
		t.Fatalf("email = %q", idx.Email)
	}
}
