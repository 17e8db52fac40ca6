package services

import (
	"context"
	"testing"

	"github.com/pathlearn/pathlearn-backend/internal/data/repos/testutil"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

func seedSourceScenario(t *testing.T, f *fixture, sourceType types.ScenarioSourceType, domain, questionTitle string) *types.Scenario {
	t.Helper()
	created, err := f.scenarios.Create(context.Background(), &types.Scenario{
		SourceType: sourceType,
		Title:      questionTitle + " scenario",
		Metadata:   map[string]any{"domain": domain},
		TaskTemplates: []types.TaskTemplate{
			{Title: questionTitle, Type: "multiple_choice", Metadata: map[string]any{"difficulty": "beginner"}},
		},
	})
	if err != nil {
		t.Fatalf("seed scenario failed: %v", err)
	}
	return created
}

func TestRepoQuestionSourcePrefersAssessmentScenarios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	seedSourceScenario(t, f, types.ScenarioSourcePBL, "algebra", "P1")
	seedSourceScenario(t, f, types.ScenarioSourceAssessment, "algebra", "A1")

	source := NewRepoQuestionSource(testutil.Logger(t), f.scenarios)
	questions, err := source.Generate(ctx, "algebra", DifficultyBeginner, 1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(questions) != 1 || questions[0].Title != "A1" {
		t.Fatalf("questions = %+v, want the assessment scenario's A1", questions)
	}
}

func TestRepoQuestionSourceFallsBackToOtherSourceTypes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	seedSourceScenario(t, f, types.ScenarioSourceDiscovery, "geometry", "D1")

	source := NewRepoQuestionSource(testutil.Logger(t), f.scenarios)
	questions, err := source.Generate(ctx, "geometry", DifficultyBeginner, 1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(questions) != 1 || questions[0].Title != "D1" {
		t.Fatalf("questions = %+v, want the discovery scenario's D1", questions)
	}
}

func TestRepoQuestionSourceUnknownDomain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	source := NewRepoQuestionSource(testutil.Logger(t), f.scenarios)
	if _, err := source.Generate(ctx, "unknown", DifficultyBeginner, 1); err == nil {
		t.Fatal("expected error for a domain with no scenarios")
	}
}
