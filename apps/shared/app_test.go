package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/storage/kv/filekv"
	"github.com/trezcool/scolarite/tests"
)

func TestNewWithStorage(t *testing.T) {
	ctx := context.Background()
	conf := testutil.Config()
	logger := testutil.Logger(conf)

	store, err := filekv.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = NewWithStorage(ctx, conf, logger, nil)
	assert.Error(t, err)

	app, err := NewWithStorage(ctx, conf, logger, store)
	require.NoError(t, err)

	// seeded collections are saved right away
	for _, key := range app.DB.Keys() {
		_, err := store.Load(ctx, key)
		assert.NoError(t, err, key)
	}

	sum, err := app.Scheduler.ScheduleAll()
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Scheduled)
	_, err = app.Ledger.Drop("S2023001", "CS201")
	require.NoError(t, err)
	require.NoError(t, app.Persist(ctx))

	t.Run("reload from the same store", func(t *testing.T) {
		again, err := NewWithStorage(ctx, conf, logger, store)
		require.NoError(t, err)

		p, err := again.Registry.Get("P001")
		require.NoError(t, err)
		require.NotNil(t, p.Slot)
		assert.Equal(t, "R101", p.Slot.RoomID)

		n, err := again.Ledger.CountActive("CS201")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		_, err = again.Users.Authenticate("admin", "Sch00l-Adm1n#")
		assert.NoError(t, err)
	})

	t.Run("notifications are recorded", func(t *testing.T) {
		last, ok := app.Recent.Last()
		require.True(t, ok)
		assert.Equal(t, core.NotifySuccess, last.Kind)
	})
}

// extrasLogger keeps the extra arguments of each Info call.
type extrasLogger struct {
	core.Logger
	info map[string][]interface{}
}

func (l *extrasLogger) Info(msg string, args ...interface{}) {
	l.info[msg] = args
}

func TestNewWithStorage_seedLog(t *testing.T) {
	conf := testutil.Config()
	logger := &extrasLogger{Logger: testutil.Logger(conf), info: make(map[string][]interface{})}

	store, err := filekv.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	app, err := NewWithStorage(context.Background(), conf, logger, store)
	require.NoError(t, err)

	// the rollbar logger only reports errors, extras maps and people
	args, ok := logger.info["seeding collections"]
	require.True(t, ok)
	require.Len(t, args, 1)
	extras, ok := args[0].(map[string]interface{})
	require.True(t, ok, "got %T", args[0])
	assert.ElementsMatch(t, app.DB.Keys(), extras["collections"])
}
