package app

import (
	"github.com/pathlearn/pathlearn-backend/internal/data/indexes"
	"github.com/pathlearn/pathlearn-backend/internal/data/repos"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
)

type Repos struct {
	Scenarios   *repos.ScenarioRepo
	Programs    *repos.ProgramRepo
	Tasks       *repos.TaskRepo
	Evaluations *repos.EvaluationRepo
	Indexes     indexes.IndexStore
}

func wireRepos(store storage.ObjectStore, log *logger.Logger, cfg Config) Repos {
	return Repos{
		Scenarios:   repos.NewScenarioRepo(store, log, cfg.ListTTL),
		Programs:    repos.NewProgramRepo(store, log, cfg.ListTTL),
		Tasks:       repos.NewTaskRepo(store, log, cfg.ListTTL),
		Evaluations: repos.NewEvaluationRepo(store, log, cfg.ListTTL),
		Indexes:     indexes.NewIndexStore(store, log),
	}
}
