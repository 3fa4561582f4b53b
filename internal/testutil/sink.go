// Package testutil provides shared test doubles for exercising the
// controller: a recording sink and payload helpers.
package testutil

import (
	"fmt"
	"sync"

	"github.com/sluiceproject/sluice/internal/controller"
)

// Emission is one recorded sink call.
type Emission struct {
	Success bool
	Group   []controller.Handle
	Outputs []controller.Output
	Err     error
}

// Handles renders the emission's group as strings for assertions.
func (e Emission) Handles() []string {
	out := make([]string, len(e.Group))
	for i, h := range e.Group {
		out[i] = fmt.Sprint(h)
	}
	return out
}

// RecordingSink captures every emission in order.
//
// The controller only emits from the invocation goroutine, but tests
// sometimes read while a forced drain is still blocking elsewhere, so access
// is guarded by a mutex.
type RecordingSink struct {
	mu        sync.Mutex
	emissions []Emission
}

// OnSuccess implements controller.Sink.
func (s *RecordingSink) OnSuccess(group []controller.Handle, outputs []controller.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emissions = append(s.emissions, Emission{Success: true, Group: group, Outputs: outputs})
	return nil
}

// OnFailure implements controller.Sink.
func (s *RecordingSink) OnFailure(group []controller.Handle, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emissions = append(s.emissions, Emission{Group: group, Err: err})
	return nil
}

// Emissions returns a copy of everything recorded so far.
func (s *RecordingSink) Emissions() []Emission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Emission, len(s.emissions))
	copy(out, s.emissions)
	return out
}

// SuccessCount returns the number of success emissions.
func (s *RecordingSink) SuccessCount() int {
	n := 0
	for _, e := range s.Emissions() {
		if e.Success {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failure emissions.
func (s *RecordingSink) FailureCount() int {
	return len(s.Emissions()) - s.SuccessCount()
}

// StringDecoder decodes payload bytes into an event carrying the payload as
// a plain string. The zero timestamp keeps scenario traces deterministic.
var StringDecoder = controller.DecoderFunc(func(data []byte) (controller.Event, error) {
	return controller.Event{Value: string(data)}, nil
})
