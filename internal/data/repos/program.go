package repos

import (
	"context"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// ProgramRepo stores learner program instances under programs/.
type ProgramRepo struct {
	*Repository[*types.Program]
}

func NewProgramRepo(store storage.ObjectStore, log *logger.Logger, ttl time.Duration) *ProgramRepo {
	return &ProgramRepo{
		Repository: NewRepository(store, log, "program", "programs/", ttl,
			func() *types.Program { return &types.Program{} },
			func(p *types.Program) {
				if p.Status == "" {
					p.Status = types.ProgramStatusActive
				}
				if p.TaskIDs == nil {
					p.TaskIDs = []string{}
				}
				if p.StartedAt.IsZero() {
					p.StartedAt = p.CreatedAt
				}
				p.CurrentTaskIndex = 0
			}),
	}
}

// FindByUser returns all Programs started by the given user.
func (r *ProgramRepo) FindByUser(ctx context.Context, userID string) ([]*types.Program, error) {
	return r.FindWhere(ctx, func(p *types.Program) bool {
		return p.UserID == userID
	})
}

// FindByScenario returns all Programs instantiated from the given Scenario.
func (r *ProgramRepo) FindByScenario(ctx context.Context, scenarioID string) ([]*types.Program, error) {
	return r.FindWhere(ctx, func(p *types.Program) bool {
		return p.ScenarioID == scenarioID
	})
}
