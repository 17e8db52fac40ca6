package app

import (
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/services"
)

type Services struct {
	Progression services.ProgressionService
	Query       services.QueryService
	Adaptive    services.AdaptiveService
}

func wireServices(log *logger.Logger, r Repos, source services.QuestionSource) Services {
	return Services{
		Progression: services.NewProgressionService(log, r.Scenarios, r.Programs, r.Tasks, r.Evaluations, r.Indexes),
		Query:       services.NewQueryService(log, r.Scenarios, r.Programs, r.Tasks, r.Evaluations, r.Indexes),
		Adaptive:    services.NewAdaptiveService(log, r.Scenarios, r.Programs, r.Tasks, r.Indexes, source),
	}
}
