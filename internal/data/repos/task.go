package repos

import (
	"context"
	"sort"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// TaskRepo stores program steps under tasks/.
type TaskRepo struct {
	*Repository[*types.Task]
}

func NewTaskRepo(store storage.ObjectStore, log *logger.Logger, ttl time.Duration) *TaskRepo {
	return &TaskRepo{
		Repository: NewRepository(store, log, "task", "tasks/", ttl,
			func() *types.Task { return &types.Task{} },
			func(t *types.Task) {
				if t.Status == "" {
					t.Status = types.TaskStatusPending
				}
			}),
	}
}

// FindByProgram returns the Program's Tasks sorted by their 1-based order.
func (r *TaskRepo) FindByProgram(ctx context.Context, programID string) ([]*types.Task, error) {
	tasks, err := r.FindWhere(ctx, func(t *types.Task) bool {
		return t.ProgramID == programID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}
