// Package indexes maintains the derived views (user index, scenario stats,
// daily activity log) that answer relationship queries without full-store
// scans. Index writes are not atomic with the entity writes they describe;
// every view here is rebuildable from the entity repositories, which stay
// the source of truth.
package indexes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

const (
	userIndexPrefix     = "indexes/users/"
	scenarioStatsPrefix = "indexes/scenarios/"
	activityPrefix      = "indexes/activity/"

	dayFormat = "2006-01-02"
)

// StatsDelta carries counter increments merged into a Scenario's stats.
type StatsDelta struct {
	TotalPrograms     int
	ActivePrograms    int
	CompletedPrograms int
}

type IndexStore interface {
	// UpdateUserIndex upserts one program summary into the user's index:
	// replaces on matching programId, appends otherwise.
	UpdateUserIndex(ctx context.Context, userID, email string, summary types.UserProgramSummary) error
	GetUserIndex(ctx context.Context, userID string) (*types.UserIndex, error)
	// RebuildUserIndex reconstructs the view from a caller-supplied program
	// list — the correctness fallback when the index has drifted.
	RebuildUserIndex(ctx context.Context, userID, email string, programs []*types.Program) (*types.UserIndex, error)

	UpdateScenarioStats(ctx context.Context, scenarioID string, delta StatsDelta) error
	GetScenarioStats(ctx context.Context, scenarioID string) (*types.ScenarioStats, error)

	// AddActivity appends to the event's UTC day log, creating the day's
	// record on first write.
	AddActivity(ctx context.Context, event types.ActivityEvent) error
	// GetUserRecentActivity scans the last N daily logs and returns the
	// user's events, newest first.
	GetUserRecentActivity(ctx context.Context, userID string, days int) ([]types.ActivityEvent, error)
	// GetActivityRange returns all events with start <= day <= end.
	GetActivityRange(ctx context.Context, start, end time.Time) ([]types.ActivityEvent, error)
}

type indexStore struct {
	store storage.ObjectStore
	log   *logger.Logger
	now   func() time.Time
}

func NewIndexStore(store storage.ObjectStore, log *logger.Logger) IndexStore {
	return &indexStore{
		store: store,
		log:   log.With("service", "IndexStore"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *indexStore) UpdateUserIndex(ctx context.Context, userID, email string, summary types.UserProgramSummary) error {
	idx, err := s.GetUserIndex(ctx, userID)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = &types.UserIndex{UserID: userID, Programs: []types.UserProgramSummary{}}
	}
	if email != "" {
		idx.Email = email
	}

	replaced := false
	for i := range idx.Programs {
		if idx.Programs[i].ProgramID == summary.ProgramID {
			idx.Programs[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Programs = append(idx.Programs, summary)
	}
	idx.LastUpdated = s.now()

	return s.put(ctx, userIndexPrefix+userID+".json", idx)
}

func (s *indexStore) GetUserIndex(ctx context.Context, userID string) (*types.UserIndex, error) {
	var idx types.UserIndex
	ok, err := s.get(ctx, userIndexPrefix+userID+".json", &idx)
	if err != nil || !ok {
		return nil, err
	}
	return &idx, nil
}

func (s *indexStore) RebuildUserIndex(ctx context.Context, userID, email string, programs []*types.Program) (*types.UserIndex, error) {
	idx := &types.UserIndex{
		UserID:      userID,
		Email:       email,
		Programs:    make([]types.UserProgramSummary, 0, len(programs)),
		LastUpdated: s.now(),
	}
	for _, p := range programs {
		if p == nil || p.UserID != userID {
			continue
		}
		idx.Programs = append(idx.Programs, types.UserProgramSummary{
			ProgramID:   p.ID,
			ScenarioID:  p.ScenarioID,
			Status:      p.Status,
			StartedAt:   p.StartedAt,
			CompletedAt: p.CompletedAt,
		})
	}
	if err := s.put(ctx, userIndexPrefix+userID+".json", idx); err != nil {
		return nil, err
	}
	s.log.Info("Rebuilt user index", "user_id", userID, "programs", len(idx.Programs))
	return idx, nil
}

func (s *indexStore) UpdateScenarioStats(ctx context.Context, scenarioID string, delta StatsDelta) error {
	var stats types.ScenarioStats
	if _, err := s.get(ctx, scenarioStatsPrefix+scenarioID+".json", &stats); err != nil {
		return err
	}
	stats.ScenarioID = scenarioID
	stats.TotalPrograms += delta.TotalPrograms
	stats.ActivePrograms += delta.ActivePrograms
	stats.CompletedPrograms += delta.CompletedPrograms
	if stats.ActivePrograms < 0 {
		stats.ActivePrograms = 0
	}
	stats.LastActivity = s.now()

	return s.put(ctx, scenarioStatsPrefix+scenarioID+".json", &stats)
}

func (s *indexStore) GetScenarioStats(ctx context.Context, scenarioID string) (*types.ScenarioStats, error) {
	var stats types.ScenarioStats
	ok, err := s.get(ctx, scenarioStatsPrefix+scenarioID+".json", &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

func (s *indexStore) AddActivity(ctx context.Context, event types.ActivityEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	day := event.Timestamp.UTC().Format(dayFormat)
	key := activityPrefix + day + ".json"

	var daily types.DailyActivityLog
	if _, err := s.get(ctx, key, &daily); err != nil {
		return err
	}
	daily.Date = day
	daily.Events = append(daily.Events, event)

	return s.put(ctx, key, &daily)
}

func (s *indexStore) GetUserRecentActivity(ctx context.Context, userID string, days int) ([]types.ActivityEvent, error) {
	if days <= 0 {
		days = 1
	}
	end := s.now()
	start := end.AddDate(0, 0, -(days - 1))
	events, err := s.GetActivityRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	var out []types.ActivityEvent
	for _, e := range events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *indexStore) GetActivityRange(ctx context.Context, start, end time.Time) ([]types.ActivityEvent, error) {
	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)
	if endDay.Before(startDay) {
		return nil, fmt.Errorf("invalid activity range: %s after %s", start, end)
	}

	var events []types.ActivityEvent
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		key := activityPrefix + day.Format(dayFormat) + ".json"
		var daily types.DailyActivityLog
		ok, err := s.get(ctx, key, &daily)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		events = append(events, daily.Events...)
	}
	return events, nil
}

// get decodes the blob at key into out, reporting whether it existed. An
// undecodable index blob is logged and treated as absent; the view will be
// regrown or rebuilt rather than wedging every caller.
func (s *indexStore) get(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn("Dropping undecodable index record", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *indexStore) put(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index %q: %w", key, err)
	}
	return s.store.Put(ctx, key, data)
}
