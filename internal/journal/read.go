package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ReadRun returns every emission of one run, ordered by (seq, id) for a
// deterministic view. Returns an empty slice (not nil) for an unknown run.
func (j *Journal) ReadRun(ctx context.Context, runID string) ([]Emission, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, seq, outcome, handles, group_size, outputs, error
		FROM emissions
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run emissions: %w", err)
	}
	defer rows.Close()

	return scanEmissions(rows)
}

// ReadAll returns every journaled emission across all runs, ordered by
// (run_id, seq, id).
func (j *Journal) ReadAll(ctx context.Context) ([]Emission, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, seq, outcome, handles, group_size, outputs, error
		FROM emissions
		ORDER BY run_id ASC, seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	defer rows.Close()

	return scanEmissions(rows)
}

// Runs returns the distinct run IDs present in the journal, oldest first.
// Run IDs are UUIDv7, so lexical order is creation order.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT run_id FROM emissions ORDER BY run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// LastSeq returns the highest sequence number journaled for a run, or 0 when
// the run has no emissions. Used to resume a node's clock on restart.
func (j *Journal) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM emissions WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func scanEmissions(rows *sql.Rows) ([]Emission, error) {
	emissions := []Emission{}
	for rows.Next() {
		var em Emission
		var outcome, handles string
		if err := rows.Scan(&em.ID, &em.RunID, &em.Seq, &outcome, &handles, &em.GroupSize, &em.Outputs, &em.Error); err != nil {
			return nil, fmt.Errorf("scan emission: %w", err)
		}
		em.Outcome = Outcome(outcome)
		if err := json.Unmarshal([]byte(handles), &em.Handles); err != nil {
			return nil, fmt.Errorf("unmarshal handles for %s: %w", em.ID, err)
		}
		emissions = append(emissions, em)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}

	return emissions, nil
}
