package repos

import (
	"context"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// EvaluationRepo stores append-only assessment records under evaluations/.
type EvaluationRepo struct {
	*Repository[*types.Evaluation]
}

func NewEvaluationRepo(store storage.ObjectStore, log *logger.Logger, ttl time.Duration) *EvaluationRepo {
	return &EvaluationRepo{
		Repository: NewRepository(store, log, "evaluation", "evaluations/", ttl,
			func() *types.Evaluation { return &types.Evaluation{} },
			func(e *types.Evaluation) {
				if e.Type == "" {
					e.Type = types.EvaluationTypeAIFeedback
				}
			}),
	}
}

// FindByEntity returns all Evaluations attached to one Task or Program.
func (r *EvaluationRepo) FindByEntity(ctx context.Context, entityType types.EvaluationEntityType, entityID string) ([]*types.Evaluation, error) {
	return r.FindWhere(ctx, func(e *types.Evaluation) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	})
}

// FindByProgram returns every Evaluation accumulated under a Program,
// task-level and program-level, via the denormalized programId.
func (r *EvaluationRepo) FindByProgram(ctx context.Context, programID string) ([]*types.Evaluation, error) {
	return r.FindWhere(ctx, func(e *types.Evaluation) bool {
		return e.ProgramID == programID
	})
}

// UpdateMetadata corrects an Evaluation's metadata. The attachment fields
// (entityType, entityId, programId, userId) are immune, keeping records
// append-only in every way that matters.
func (r *EvaluationRepo) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) (*types.Evaluation, error) {
	return r.Update(ctx, id, map[string]any{"metadata": metadata})
}
