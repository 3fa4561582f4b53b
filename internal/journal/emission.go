package journal

// Outcome classifies how a completion group left the node.
type Outcome string

const (
	// OutcomeSuccess marks a group emitted through the sink's success path.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure marks a group routed through the failure path.
	OutcomeFailure Outcome = "failure"
)

// Emission is one journaled downstream emission.
type Emission struct {
	// ID is the journal record's unique identifier.
	ID string `json:"id"`

	// RunID correlates every emission of one node run.
	RunID string `json:"run_id"`

	// Seq is the logical clock stamp; emissions of a run are totally
	// ordered by it.
	Seq int64 `json:"seq"`

	// Outcome is success or failure.
	Outcome Outcome `json:"outcome"`

	// Handles are the completion group's source handles rendered as
	// strings. Empty when output anchoring is disabled.
	Handles []string `json:"handles"`

	// GroupSize is the size of the group as dispatched, recorded even when
	// anchoring strips the handles themselves.
	GroupSize int `json:"group_size"`

	// Outputs is the number of output values emitted. Zero for failures.
	Outputs int `json:"outputs"`

	// Error holds the failure text, empty on success.
	Error string `json:"error,omitempty"`
}
