package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"command-agent/agent/internal/command"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	gdb, err := Open("sqlite", filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	return NewJournal(gdb)
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := newJournal(t)
	base := time.Now().Add(-time.Minute)

	require.NoError(t, j.Record("dev", command.Result{CommandID: "1", Status: command.StatusSuccess, Output: "a", Outcome: command.OutcomeOK, Timestamp: base}, nil))
	require.NoError(t, j.Record("dev", command.Result{CommandID: "2", Status: command.StatusSuccess, Output: "b", Outcome: command.OutcomeError, Timestamp: base.Add(time.Second)}, errors.New("connection refused")))

	rows, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].CommandID)
	assert.False(t, rows[0].Delivered)
	assert.Equal(t, "connection refused", rows[0].DeliveryErr)
	assert.Equal(t, "1", rows[1].CommandID)
	assert.True(t, rows[1].Delivered)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestJournalPrune(t *testing.T) {
	j := newJournal(t)
	now := time.Now()
	require.NoError(t, j.Record("dev", command.Result{CommandID: "old", Timestamp: now.Add(-48 * time.Hour)}, nil))
	require.NoError(t, j.Record("dev", command.Result{CommandID: "new", Timestamp: now}, nil))

	n, err := j.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].CommandID)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.ErrorContains(t, err, "unsupported db driver")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "日", truncate("日本", 4))
	assert.Equal(t, "short", truncate("short", 10))
}
