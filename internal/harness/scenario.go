package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted controller run.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are stored under
	// testdata/golden/{Name}.golden.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// Threshold overrides the backpressure threshold. Zero keeps the
	// controller default.
	Threshold int `yaml:"threshold,omitempty"`

	// MaxWait bounds forced drains, e.g. "50ms". Empty keeps the default.
	MaxWait string `yaml:"max_wait,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	// Record invokes the controller with a record signal.
	Record *RecordStep `yaml:"record,omitempty"`

	// Resolve resolves a previously dispatched operation by ID, standing in
	// for the external goroutine that finishes the work.
	Resolve *ResolveStep `yaml:"resolve,omitempty"`

	// Tick invokes the controller with the tick signal, flushing completed
	// work.
	Tick bool `yaml:"tick,omitempty"`
}

// RecordStep describes one record invocation and its scripted fan-out.
type RecordStep struct {
	// Handle is the record's source handle.
	Handle string `yaml:"handle"`

	// Value is the record payload.
	Value string `yaml:"value"`

	// Ops is the fan-out the processing function returns for this record.
	Ops []OpSpec `yaml:"ops,omitempty"`

	// FailDispatch, when non-empty, makes the processing call itself fail
	// with this message (a dispatch failure, fatal for the invocation).
	FailDispatch string `yaml:"fail_dispatch,omitempty"`
}

// OpSpec scripts one asynchronous operation.
type OpSpec struct {
	// ID names the operation for later Resolve steps.
	ID string `yaml:"id"`

	// Group is the completion group. Defaults to the record's handle.
	Group []string `yaml:"group,omitempty"`

	// Outputs are the values the operation resolves to.
	Outputs []string `yaml:"outputs,omitempty"`

	// Fail, when non-empty, resolves the operation to this failure instead
	// of outputs.
	Fail string `yaml:"fail,omitempty"`

	// Immediate resolves the operation before the processing call returns,
	// modeling work that needs no deferral.
	Immediate bool `yaml:"immediate,omitempty"`
}

// ResolveStep resolves a scripted operation between invocations.
type ResolveStep struct {
	// Op is the OpSpec ID to resolve.
	Op string `yaml:"op"`
}

// Validate rejects structurally broken scenarios before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario needs a name")
	}
	if s.MaxWait != "" {
		if _, err := time.ParseDuration(s.MaxWait); err != nil {
			return fmt.Errorf("scenario %s: parse max_wait: %w", s.Name, err)
		}
	}

	declared := map[string]bool{}
	for i, step := range s.Steps {
		set := 0
		if step.Record != nil {
			set++
		}
		if step.Resolve != nil {
			set++
		}
		if step.Tick {
			set++
		}
		if set != 1 {
			return fmt.Errorf("scenario %s: step %d must set exactly one of record, resolve, tick", s.Name, i)
		}

		if step.Record != nil {
			if step.Record.Handle == "" {
				return fmt.Errorf("scenario %s: step %d record needs a handle", s.Name, i)
			}
			for _, op := range step.Record.Ops {
				if op.ID == "" {
					return fmt.Errorf("scenario %s: step %d op needs an id", s.Name, i)
				}
				if declared[op.ID] {
					return fmt.Errorf("scenario %s: duplicate op id %q", s.Name, op.ID)
				}
				declared[op.ID] = true
			}
		}

		if step.Resolve != nil && !declared[step.Resolve.Op] {
			return fmt.Errorf("scenario %s: step %d resolves unknown op %q", s.Name, i, step.Resolve.Op)
		}
	}

	return nil
}

// maxWait returns the parsed bound, or fallback when unset.
func (s *Scenario) maxWait(fallback time.Duration) time.Duration {
	if s.MaxWait == "" {
		return fallback
	}
	d, err := time.ParseDuration(s.MaxWait)
	if err != nil {
		return fallback
	}
	return d
}

// LoadScenario reads and validates a YAML scenario file. Unknown keys are
// rejected so stale scripts fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}
