package journal

import (
	"context"
	"fmt"

	"github.com/sluiceproject/sluice/internal/controller"
)

// Sink journals every emission, then forwards it to an optional downstream
// sink. It implements controller.Sink and is called only from the invocation
// goroutine, so it needs no locking of its own.
type Sink struct {
	journal *Journal
	next    controller.Sink
	ids     IDGenerator
	clock   *controller.Clock
	runID   string
	anchor  bool
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithDownstream forwards journaled emissions to next. Without it the
// journal itself is the terminal sink.
func WithDownstream(next controller.Sink) SinkOption {
	return func(s *Sink) {
		s.next = next
	}
}

// WithIDGenerator overrides the record ID generator (tests use
// FixedGenerator for deterministic journals).
func WithIDGenerator(ids IDGenerator) SinkOption {
	return func(s *Sink) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithClock overrides the sequence clock, e.g. one resumed from LastSeq.
func WithClock(clock *controller.Clock) SinkOption {
	return func(s *Sink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAnchoring controls whether group handles are recorded. When disabled
// the journal keeps only group sizes; emissions are not traceable back to
// their source records.
//
// Default: true.
func WithAnchoring(anchor bool) SinkOption {
	return func(s *Sink) {
		s.anchor = anchor
	}
}

// NewSink creates a journaling sink for one node run.
func NewSink(j *Journal, runID string, opts ...SinkOption) *Sink {
	s := &Sink{
		journal: j,
		ids:     UUIDv7Generator{},
		clock:   controller.NewClock(),
		runID:   runID,
		anchor:  true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnSuccess journals the group's outputs and forwards downstream.
func (s *Sink) OnSuccess(group []controller.Handle, outputs []controller.Output) error {
	em := s.emission(group)
	em.Outcome = OutcomeSuccess
	em.Outputs = len(outputs)

	if err := s.journal.Append(context.Background(), em); err != nil {
		return fmt.Errorf("journal success emission: %w", err)
	}
	if s.next != nil {
		return s.next.OnSuccess(group, outputs)
	}
	return nil
}

// OnFailure journals the group's failure and forwards downstream.
func (s *Sink) OnFailure(group []controller.Handle, emitErr error) error {
	em := s.emission(group)
	em.Outcome = OutcomeFailure
	em.Error = emitErr.Error()

	if err := s.journal.Append(context.Background(), em); err != nil {
		return fmt.Errorf("journal failure emission: %w", err)
	}
	if s.next != nil {
		return s.next.OnFailure(group, emitErr)
	}
	return nil
}

func (s *Sink) emission(group []controller.Handle) Emission {
	em := Emission{
		ID:        s.ids.Generate(),
		RunID:     s.runID,
		Seq:       s.clock.Next(),
		GroupSize: len(group),
	}
	if s.anchor {
		em.Handles = renderHandles(group)
	}
	return em
}

// renderHandles stringifies opaque handles for the journal. Handles are
// host-owned; fmt.Sprint is the only rendering the node can assume.
func renderHandles(group []controller.Handle) []string {
	if len(group) == 0 {
		return nil
	}
	out := make([]string, len(group))
	for i, h := range group {
		out[i] = fmt.Sprint(h)
	}
	return out
}
