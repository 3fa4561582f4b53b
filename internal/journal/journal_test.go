package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "emissions.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, j.Close())
	})
	return j
}

func TestJournal_AppendAndReadRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, Emission{
		ID: "em-1", RunID: "run-a", Seq: 1,
		Outcome: OutcomeSuccess, Handles: []string{"r1"}, GroupSize: 1, Outputs: 2,
	}))
	require.NoError(t, j.Append(ctx, Emission{
		ID: "em-2", RunID: "run-a", Seq: 2,
		Outcome: OutcomeFailure, Handles: []string{"r2", "r3"}, GroupSize: 2, Error: "lookup failed",
	}))

	emissions, err := j.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, emissions, 2)

	assert.Equal(t, "em-1", emissions[0].ID)
	assert.Equal(t, OutcomeSuccess, emissions[0].Outcome)
	assert.Equal(t, []string{"r1"}, emissions[0].Handles)
	assert.Equal(t, 2, emissions[0].Outputs)

	assert.Equal(t, "em-2", emissions[1].ID)
	assert.Equal(t, OutcomeFailure, emissions[1].Outcome)
	assert.Equal(t, []string{"r2", "r3"}, emissions[1].Handles)
	assert.Equal(t, "lookup failed", emissions[1].Error)
}

func TestJournal_Append_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	em := Emission{ID: "em-1", RunID: "run-a", Seq: 1, Outcome: OutcomeSuccess, GroupSize: 1}
	require.NoError(t, j.Append(ctx, em))

	// Same ID again: silently ignored, no duplicate row
	em.Outputs = 99
	require.NoError(t, j.Append(ctx, em))

	emissions, err := j.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, emissions, 1)
	assert.Equal(t, 0, emissions[0].Outputs, "first write wins")
}

func TestJournal_ReadRun_OrderBySeq(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	// Insert out of seq order
	require.NoError(t, j.Append(ctx, Emission{ID: "em-b", RunID: "run-a", Seq: 3, Outcome: OutcomeSuccess}))
	require.NoError(t, j.Append(ctx, Emission{ID: "em-a", RunID: "run-a", Seq: 1, Outcome: OutcomeSuccess}))
	require.NoError(t, j.Append(ctx, Emission{ID: "em-c", RunID: "run-a", Seq: 2, Outcome: OutcomeSuccess}))

	emissions, err := j.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, emissions, 3)
	assert.Equal(t, int64(1), emissions[0].Seq)
	assert.Equal(t, int64(2), emissions[1].Seq)
	assert.Equal(t, int64(3), emissions[2].Seq)
}

func TestJournal_ReadRun_UnknownRun_Empty(t *testing.T) {
	j := openTestJournal(t)

	emissions, err := j.ReadRun(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.NotNil(t, emissions)
	assert.Empty(t, emissions)
}

func TestJournal_EmptyHandles_RoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, Emission{
		ID: "em-1", RunID: "run-a", Seq: 1, Outcome: OutcomeSuccess, GroupSize: 2,
	}))

	emissions, err := j.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, emissions, 1)
	assert.Empty(t, emissions[0].Handles)
	assert.Equal(t, 2, emissions[0].GroupSize, "group size survives anchorless journaling")
}

func TestJournal_RunsAndReadAll(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, Emission{ID: "em-1", RunID: "run-a", Seq: 1, Outcome: OutcomeSuccess}))
	require.NoError(t, j.Append(ctx, Emission{ID: "em-2", RunID: "run-b", Seq: 1, Outcome: OutcomeFailure, Error: "x"}))
	require.NoError(t, j.Append(ctx, Emission{ID: "em-3", RunID: "run-a", Seq: 2, Outcome: OutcomeSuccess}))

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, runs)

	all, err := j.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "em-1", all[0].ID)
	assert.Equal(t, "em-3", all[1].ID)
	assert.Equal(t, "em-2", all[2].ID)
}

func TestJournal_LastSeq(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	seq, err := j.LastSeq(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq, "empty run has no sequence")

	require.NoError(t, j.Append(ctx, Emission{ID: "em-1", RunID: "run-a", Seq: 7, Outcome: OutcomeSuccess}))
	require.NoError(t, j.Append(ctx, Emission{ID: "em-2", RunID: "run-a", Seq: 4, Outcome: OutcomeSuccess}))

	seq, err = j.LastSeq(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestJournal_Open_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emissions.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), Emission{ID: "em-1", RunID: "run-a", Seq: 1, Outcome: OutcomeSuccess}))
	require.NoError(t, j.Close())

	// Reopening applies the schema idempotently and keeps existing rows
	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	emissions, err := j2.ReadRun(context.Background(), "run-a")
	require.NoError(t, err)
	assert.Len(t, emissions, 1)
}
