package learning

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/finleaf/cashflow-forecast/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "learning.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations())
	return NewStore(db, logger)
}

func TestRecordCorrectionAndSnapshot(t *testing.T) {
	store := newTestStore(t)

	correction, err := store.RecordCorrection("client-1", "blue ridge consulting", "4100")
	require.NoError(t, err)
	assert.NotEmpty(t, correction.ID)

	mappings, err := store.GetMappings("client-1")
	require.NoError(t, err)
	require.Contains(t, mappings, "blue ridge consulting")

	m := mappings["blue ridge consulting"]
	assert.Equal(t, "4100", m.GLAccountOverride)
	assert.InDelta(t, correctionConfidence, m.Confidence, 1e-9)
	assert.WithinDuration(t, time.Now().UTC(), m.LastCorrectedAt, time.Minute)
}

func TestRecordCorrectionUpsertsMapping(t *testing.T) {
	store := newTestStore(t)

	_, err := store.RecordCorrection("client-1", "acme", "6200")
	require.NoError(t, err)
	_, err = store.RecordCorrection("client-1", "acme", "4100")
	require.NoError(t, err)

	// The mapping reflects the latest correction...
	mappings, err := store.GetMappings("client-1")
	require.NoError(t, err)
	assert.Equal(t, "4100", mappings["acme"].GLAccountOverride)

	// ...while the log keeps every event.
	history, err := store.Corrections("client-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "4100", history[0].GLAccount)
	assert.Equal(t, "6200", history[1].GLAccount)
}

func TestMappingsAreScopedPerClient(t *testing.T) {
	store := newTestStore(t)

	_, err := store.RecordCorrection("client-1", "acme", "4100")
	require.NoError(t, err)

	mappings, err := store.GetMappings("client-2")
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestSnapshotIsImmutable(t *testing.T) {
	store := newTestStore(t)

	_, err := store.RecordCorrection("client-1", "acme", "4100")
	require.NoError(t, err)

	snapshot, err := store.GetMappings("client-1")
	require.NoError(t, err)

	_, err = store.RecordCorrection("client-1", "acme", "6200")
	require.NoError(t, err)

	// The earlier snapshot still shows the state it was taken at.
	assert.Equal(t, "4100", snapshot["acme"].GLAccountOverride)
}
