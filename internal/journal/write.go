package journal

import (
	"context"
	"encoding/json"
	"fmt"
)

// Append inserts one emission record.
//
// Idempotent: a duplicate emission ID is silently ignored via ON CONFLICT
// DO NOTHING, so re-journaling (e.g. a run resumed against an existing
// database) never duplicates rows. Other constraint violations still return
// errors.
func (j *Journal) Append(ctx context.Context, em Emission) error {
	handles, err := marshalHandles(em.Handles)
	if err != nil {
		return fmt.Errorf("append emission: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO emissions
		(id, run_id, seq, outcome, handles, group_size, outputs, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		em.ID,
		em.RunID,
		em.Seq,
		string(em.Outcome),
		handles,
		em.GroupSize,
		em.Outputs,
		em.Error,
	)
	if err != nil {
		return fmt.Errorf("append emission: %w", err)
	}

	return nil
}

// marshalHandles renders the group handles as a JSON array, "[]" when empty,
// so the column is always valid JSON.
func marshalHandles(handles []string) (string, error) {
	if len(handles) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(handles)
	if err != nil {
		return "", fmt.Errorf("marshal handles: %w", err)
	}
	return string(b), nil
}
