package repos

import (
	"context"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// ScenarioRepo stores learning-content templates under scenarios/.
type ScenarioRepo struct {
	*Repository[*types.Scenario]
}

func NewScenarioRepo(store storage.ObjectStore, log *logger.Logger, ttl time.Duration) *ScenarioRepo {
	return &ScenarioRepo{
		Repository: NewRepository(store, log, "scenario", "scenarios/", ttl,
			func() *types.Scenario { return &types.Scenario{} }, nil),
	}
}

// FindBySourceType filters the cached listing by content source.
func (r *ScenarioRepo) FindBySourceType(ctx context.Context, sourceType types.ScenarioSourceType) ([]*types.Scenario, error) {
	return r.FindWhere(ctx, func(s *types.Scenario) bool {
		return s.SourceType == sourceType
	})
}
