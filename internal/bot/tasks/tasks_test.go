package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youarebest/tgbot/internal/database"
	"github.com/youarebest/tgbot/internal/logger"
)

type stubStore struct {
	database.Store
	vacuumErr error
	vacuumed  int
	cutoff    time.Time
}

func (s *stubStore) RunSQLMaintenance(context.Context) error {
	s.vacuumed++
	return s.vacuumErr
}

func (s *stubStore) PurgeFlowsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 2, nil
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	store := &stubStore{}
	tasks := RegisterAllTasks(TaskDeps{Logger: logger.Discard(), Store: store, FlowTTL: 10 * time.Minute})

	require.Contains(t, tasks, "sql_maintenance")
	require.Contains(t, tasks, "flow_cleanup")

	require.NoError(t, tasks["sql_maintenance"](context.Background()))
	assert.Equal(t, 1, store.vacuumed)

	before := time.Now()
	require.NoError(t, tasks["flow_cleanup"](context.Background()))
	assert.WithinDuration(t, before.Add(-10*time.Minute), store.cutoff, time.Second)
}

func TestSQLMaintenanceTaskWrapsError(t *testing.T) {
	t.Parallel()
	boom := errors.New("database is locked")
	store := &stubStore{vacuumErr: boom}
	task := newSQLMaintenanceTask(TaskDeps{Logger: logger.Discard(), Store: store})

	err := task(context.Background())
	assert.ErrorIs(t, err, boom)
}
