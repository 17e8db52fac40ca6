package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// stubSource returns a fixed question and records the difficulties it was
// asked for.
type stubSource struct {
	asked []Difficulty
}

func (s *stubSource) Generate(ctx context.Context, domain string, difficulty Difficulty, count int) ([]Question, error) {
	s.asked = append(s.asked, difficulty)
	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Question{
			Title: fmt.Sprintf("%s question %d", difficulty, len(s.asked)),
			Type:  "multiple_choice",
			Metadata: map[string]any{
				"question_type":  "multiple_choice",
				"correct_answer": "42",
			},
		})
	}
	return out, nil
}

func startAssessment(t *testing.T, f *fixture, scenarioMeta map[string]any, initial Difficulty) (*types.Program, *AdaptiveState) {
	t.Helper()
	ctx := context.Background()
	scenario := f.seedScenario(t, "Adaptive Math", 0, scenarioMeta)
	program, _, err := f.progression.CreateLearningProgram(ctx, scenario.ID, "user-1", nil)
	if err != nil {
		t.Fatalf("CreateLearningProgram failed: %v", err)
	}
	state, err := f.adaptive.StartAssessment(ctx, program.ID, initial)
	if err != nil {
		t.Fatalf("StartAssessment failed: %v", err)
	}
	return program, state
}

func TestStartAssessmentDefaults(t *testing.T) {
	f := newFixture(t, &stubSource{})
	_, state := startAssessment(t, f, nil, "")

	if state.CurrentDifficulty != DifficultyBeginner {
		t.Fatalf("difficulty = %q, want beginner", state.CurrentDifficulty)
	}
	if state.QuestionsAnswered != 0 || state.PerformanceScore != 0 {
		t.Fatalf("fresh state = %+v", state)
	}
}

func TestStartAssessmentScenarioOverride(t *testing.T) {
	f := newFixture(t, &stubSource{})
	_, state := startAssessment(t, f, map[string]any{"initial_difficulty": "advanced"}, "")

	if state.CurrentDifficulty != DifficultyAdvanced {
		t.Fatalf("difficulty = %q, want advanced from scenario metadata", state.CurrentDifficulty)
	}
}

func TestRecordAnswerPromotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, nil, DifficultyIntermediate)

	var state *AdaptiveState
	var err error
	for i := 0; i < 3; i++ {
		state, err = f.adaptive.RecordAnswer(ctx, program.ID, true)
		if err != nil {
			t.Fatalf("RecordAnswer %d failed: %v", i+1, err)
		}
	}
	// Three corrects: score 3 > 2, intermediate promotes to advanced.
	if state.CurrentDifficulty != DifficultyAdvanced {
		t.Fatalf("difficulty = %q, want advanced after 3 correct answers", state.CurrentDifficulty)
	}
	if state.QuestionsAnswered != 3 || state.PerformanceScore != 3 {
		t.Fatalf("state = %+v, want 3 answered / score 3", state)
	}

	// State survives a reload.
	reloaded, err := f.adaptive.GetState(ctx, program.ID)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if *reloaded != *state {
		t.Fatalf("reloaded state %+v != %+v", reloaded, state)
	}
}

func TestRecordAnswerScoreFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, nil, DifficultyBeginner)

	var state *AdaptiveState
	var err error
	for i := 0; i < 4; i++ {
		state, err = f.adaptive.RecordAnswer(ctx, program.ID, false)
		if err != nil {
			t.Fatalf("RecordAnswer failed: %v", err)
		}
	}
	if state.PerformanceScore != 0 {
		t.Fatalf("performanceScore = %v, want floor at 0", state.PerformanceScore)
	}
	if state.CurrentDifficulty != DifficultyBeginner {
		t.Fatalf("difficulty = %q, want beginner held", state.CurrentDifficulty)
	}
}

func TestNextTaskUsesCurrentDifficulty(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{}
	f := newFixture(t, source)
	program, _ := startAssessment(t, f, nil, DifficultyIntermediate)

	task, err := f.adaptive.NextTask(ctx, program.ID)
	if err != nil {
		t.Fatalf("NextTask failed: %v", err)
	}
	if task == nil {
		t.Fatal("NextTask = nil with budget remaining")
	}
	if task.Status != types.TaskStatusActive {
		t.Fatalf("task status = %q, want active", task.Status)
	}
	if task.Metadata["difficulty"] != "intermediate" {
		t.Fatalf("task difficulty = %v, want intermediate", task.Metadata["difficulty"])
	}
	if len(source.asked) != 1 || source.asked[0] != DifficultyIntermediate {
		t.Fatalf("source asked %v, want one intermediate request", source.asked)
	}

	program, err = f.programs.FindByID(ctx, program.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if len(program.TaskIDs) != 1 || program.TaskIDs[0] != task.ID {
		t.Fatalf("taskIds = %v, want the new question appended", program.TaskIDs)
	}
}

func TestNextTaskStopsAtQuestionBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, map[string]any{"max_questions": 2}, DifficultyBeginner)

	for i := 0; i < 2; i++ {
		task, err := f.adaptive.NextTask(ctx, program.ID)
		if err != nil || task == nil {
			t.Fatalf("NextTask %d = (%v, %v)", i+1, task, err)
		}
		if _, err := f.adaptive.RecordAnswer(ctx, program.ID, true); err != nil {
			t.Fatalf("RecordAnswer failed: %v", err)
		}
	}

	task, err := f.adaptive.NextTask(ctx, program.ID)
	if err != nil {
		t.Fatalf("NextTask failed: %v", err)
	}
	if task != nil {
		t.Fatalf("NextTask after budget spent = %+v, want nil", task)
	}
}

func TestCalculateAssessmentResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, nil, DifficultyBeginner)

	q1, err := f.adaptive.NextTask(ctx, program.ID)
	if err != nil || q1 == nil {
		t.Fatalf("NextTask = (%v, %v)", q1, err)
	}
	q2, err := f.adaptive.NextTask(ctx, program.ID)
	if err != nil || q2 == nil {
		t.Fatalf("NextTask = (%v, %v)", q2, err)
	}

	result, err := f.adaptive.CalculateAssessmentResults(ctx, program.ID, []AssessmentResponse{
		{TaskID: q1.ID, Answer: " 42 "},
		{TaskID: q2.ID, Answer: "wrong"},
	})
	if err != nil {
		t.Fatalf("CalculateAssessmentResults failed: %v", err)
	}
	if result.MaxScore != 20 || result.Score != 10 {
		t.Fatalf("score = %d/%d, want 10/20", result.Score, result.MaxScore)
	}
	if result.Percentage != 50 {
		t.Fatalf("percentage = %v, want 50", result.Percentage)
	}
	if result.Passed {
		t.Fatal("half marks should not pass the default 70 threshold")
	}
	if len(result.Questions) != 2 || !result.Questions[0].Correct || result.Questions[1].Correct {
		t.Fatalf("questions = %+v", result.Questions)
	}
}

func TestCalculateAssessmentResultsPassingOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, map[string]any{"passing_score": 50}, DifficultyBeginner)

	q1, err := f.adaptive.NextTask(ctx, program.ID)
	if err != nil || q1 == nil {
		t.Fatalf("NextTask = (%v, %v)", q1, err)
	}
	q2, err := f.adaptive.NextTask(ctx, program.ID)
	if err != nil || q2 == nil {
		t.Fatalf("NextTask = (%v, %v)", q2, err)
	}

	result, err := f.adaptive.CalculateAssessmentResults(ctx, program.ID, []AssessmentResponse{
		{TaskID: q1.ID, Answer: "42"},
		{TaskID: q2.ID, Answer: "nope"},
	})
	if err != nil {
		t.Fatalf("CalculateAssessmentResults failed: %v", err)
	}
	if !result.Passed {
		t.Fatalf("result = %+v, half marks should pass a 50 threshold", result)
	}
}

func TestCalculateAssessmentResultsOpenAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, nil, DifficultyBeginner)

	task, err := f.tasks.Create(ctx, &types.Task{
		ProgramID: program.ID,
		Title:     "Explain photosynthesis",
		Type:      "open_ended",
		Order:     1,
		Status:    types.TaskStatusActive,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := f.adaptive.CalculateAssessmentResults(ctx, program.ID, []AssessmentResponse{
		{TaskID: task.ID, Answer: "light into sugar", Metadata: map[string]any{"correct": true}},
	})
	if err != nil {
		t.Fatalf("CalculateAssessmentResults failed: %v", err)
	}
	if !result.Questions[0].Correct || result.Score != 10 {
		t.Fatalf("open answer with evaluator verdict true = %+v", result)
	}

	// Missing verdict grades as incorrect.
	result, err = f.adaptive.CalculateAssessmentResults(ctx, program.ID, []AssessmentResponse{
		{TaskID: task.ID, Answer: "light into sugar"},
	})
	if err != nil {
		t.Fatalf("CalculateAssessmentResults failed: %v", err)
	}
	if result.Questions[0].Correct {
		t.Fatal("open answer without verdict must grade incorrect")
	}
}

func TestCalculateAssessmentResultsUnknownTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{})
	program, _ := startAssessment(t, f, nil, DifficultyBeginner)

	result, err := f.adaptive.CalculateAssessmentResults(ctx, program.ID, []AssessmentResponse{
		{TaskID: "ghost", Answer: "42"},
	})
	if err != nil {
		t.Fatalf("CalculateAssessmentResults failed: %v", err)
	}
	if result.Score != 0 || len(result.Questions) != 1 || result.Questions[0].Correct {
		t.Fatalf("unknown task must zero-point, got %+v", result)
	}
}

func TestTemplateQuestionSourceCycles(t *testing.T) {
	ctx := context.Background()
	scenario := &types.Scenario{
		TaskTemplates: []types.TaskTemplate{
			{Title: "B1", Type: "multiple_choice", Metadata: map[string]any{"difficulty": "beginner"}},
			{Title: "B2", Type: "multiple_choice", Metadata: map[string]any{"difficulty": "beginner"}},
			{Title: "A1", Type: "multiple_choice", Metadata: map[string]any{"difficulty": "advanced"}},
		},
	}
	source := NewTemplateQuestionSource(scenario)

	var titles []string
	for i := 0; i < 3; i++ {
		qs, err := source.Generate(ctx, "math", DifficultyBeginner, 1)
		if err != nil || len(qs) != 1 {
			t.Fatalf("Generate = (%v, %v)", qs, err)
		}
		titles = append(titles, qs[0].Title)
	}
	if titles[0] != "B1" || titles[1] != "B2" || titles[2] != "B1" {
		t.Fatalf("beginner bucket did not cycle: %v", titles)
	}

	// No intermediate templates: falls back to a non-empty bucket.
	qs, err := source.Generate(ctx, "math", DifficultyIntermediate, 1)
	if err != nil || len(qs) != 1 {
		t.Fatalf("fallback Generate = (%v, %v)", qs, err)
	}
}

func TestDifficultyPromoteDemoteBounds(t *testing.T) {
	if DifficultyAdvanced.Promote() != DifficultyAdvanced {
		t.Fatal("advanced must hold at the top")
	}
	if DifficultyBeginner.Demote() != DifficultyBeginner {
		t.Fatal("beginner must hold at the bottom")
	}
	if DifficultyBeginner.Promote() != DifficultyIntermediate || DifficultyAdvanced.Demote() != DifficultyIntermediate {
		t.Fatal("single-step transitions broken")
	}
}
