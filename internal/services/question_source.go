package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/pathlearn/pathlearn-backend/internal/data/repos"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// Question is one generated assessment item. Metadata carries whatever the
// grader needs, typically question_type, correct_answer and options.
type Question struct {
	Title       string
	Description string
	Type        string
	Metadata    map[string]any
}

// QuestionSource produces assessment content. The adaptive engine decides
// when to call it and at which difficulty; what comes back is entirely the
// source's business. Production wires an AI-backed source; tests and
// offline deployments use the template-backed one below.
type QuestionSource interface {
	Generate(ctx context.Context, domain string, difficulty Difficulty, count int) ([]Question, error)
}

// TemplateQuestionSource serves questions drawn from a Scenario's task
// templates, bucketed by their difficulty metadata. Buckets cycle, so the
// source never runs dry while the engine still has question budget.
type TemplateQuestionSource struct {
	mu      sync.Mutex
	buckets map[Difficulty][]Question
	cursor  map[Difficulty]int
}

func NewTemplateQuestionSource(scenario *types.Scenario) *TemplateQuestionSource {
	src := &TemplateQuestionSource{
		buckets: make(map[Difficulty][]Question),
		cursor:  make(map[Difficulty]int),
	}
	for _, tmpl := range scenario.TaskTemplates {
		difficulty := DifficultyBeginner
		if tmpl.Metadata != nil {
			if v, ok := tmpl.Metadata["difficulty"].(string); ok && Difficulty(v).IsValid() {
				difficulty = Difficulty(v)
			}
		}
		src.buckets[difficulty] = append(src.buckets[difficulty], Question{
			Title:       tmpl.Title,
			Description: tmpl.Description,
			Type:        tmpl.Type,
			Metadata:    tmpl.Metadata,
		})
	}
	return src
}

func (s *TemplateQuestionSource) Generate(ctx context.Context, domain string, difficulty Difficulty, count int) ([]Question, error) {
	if count <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.pickBucket(difficulty)
	if len(bucket) == 0 {
		return nil, fmt.Errorf("no question templates available for %q", domain)
	}

	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		idx := s.cursor[difficulty] % len(bucket)
		s.cursor[difficulty]++
		out = append(out, bucket[idx])
	}
	return out, nil
}

// pickBucket falls back to the nearest non-empty difficulty so a scenario
// without advanced templates still yields questions at the top level.
func (s *TemplateQuestionSource) pickBucket(difficulty Difficulty) []Question {
	if qs := s.buckets[difficulty]; len(qs) > 0 {
		return qs
	}
	for _, d := range []Difficulty{DifficultyIntermediate, DifficultyBeginner, DifficultyAdvanced} {
		if qs := s.buckets[d]; len(qs) > 0 {
			return qs
		}
	}
	return nil
}

// RepoQuestionSource resolves the domain to a Scenario (domain metadata
// first, title as fallback) and serves from that Scenario's templates.
// Per-scenario template sources are cached for cursor continuity.
type RepoQuestionSource struct {
	log       *logger.Logger
	scenarios *repos.ScenarioRepo

	mu      sync.Mutex
	sources map[string]*TemplateQuestionSource
}

func NewRepoQuestionSource(log *logger.Logger, scenarios *repos.ScenarioRepo) *RepoQuestionSource {
	return &RepoQuestionSource{
		log:       log.With("service", "RepoQuestionSource"),
		scenarios: scenarios,
		sources:   make(map[string]*TemplateQuestionSource),
	}
}

func (s *RepoQuestionSource) Generate(ctx context.Context, domain string, difficulty Difficulty, count int) ([]Question, error) {
	scenario, err := s.findScenario(ctx, domain)
	if err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, fmt.Errorf("no scenario found for domain %q", domain)
	}

	s.mu.Lock()
	src, ok := s.sources[scenario.ID]
	if !ok {
		src = NewTemplateQuestionSource(scenario)
		s.sources[scenario.ID] = src
		s.log.Debug("Built template question source", "scenario_id", scenario.ID, "domain", domain)
	}
	s.mu.Unlock()

	return src.Generate(ctx, domain, difficulty, count)
}

// findScenario prefers assessment scenarios for the domain; other source
// types are the fallback when no assessment content exists.
func (s *RepoQuestionSource) findScenario(ctx context.Context, domain string) (*types.Scenario, error) {
	assessments, err := s.scenarios.FindBySourceType(ctx, types.ScenarioSourceAssessment)
	if err != nil {
		return nil, err
	}
	if sc := matchScenarioDomain(assessments, domain); sc != nil {
		return sc, nil
	}
	all, err := s.scenarios.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return matchScenarioDomain(all, domain), nil
}

// matchScenarioDomain resolves by domain metadata first, title second.
func matchScenarioDomain(scenarios []*types.Scenario, domain string) *types.Scenario {
	for _, sc := range scenarios {
		if sc.Metadata != nil {
			if v, ok := sc.Metadata["domain"].(string); ok && v == domain {
				return sc
			}
		}
	}
	for _, sc := range scenarios {
		if sc.Title == domain {
			return sc
		}
	}
	return nil
}
