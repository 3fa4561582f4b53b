package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sluiceproject/sluice/internal/controller"
)

// lineDecoder decodes one stdin line into an event. Lines may carry an
// explicit RFC 3339 timestamp as "timestamp|value"; bare lines get the
// current time.
func lineDecoder(now func() time.Time) controller.Decoder {
	return controller.DecoderFunc(func(data []byte) (controller.Event, error) {
		line := string(data)
		if ts, value, ok := strings.Cut(line, "|"); ok {
			parsed, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return controller.Event{}, fmt.Errorf("timestamp %q: %w", ts, err)
			}
			return controller.Event{Timestamp: parsed, Value: value}, nil
		}
		return controller.Event{Timestamp: now(), Value: line}, nil
	})
}

// demoProcessor upper-cases each record asynchronously after an artificial
// delay, exercising the controller's deferred-completion path. The group is
// the record's own handle, one fan-out per record.
func demoProcessor(delay time.Duration) controller.ProcessFunc {
	return func(ctx context.Context, handle controller.Handle, ev controller.Event) ([]controller.Dispatch, error) {
		op := controller.NewOperation()

		go func() {
			if delay > 0 {
				time.Sleep(delay)
			}
			op.Complete([]controller.Output{{
				Timestamp: ev.Timestamp,
				Value:     strings.ToUpper(fmt.Sprint(ev.Value)),
			}})
		}()

		return []controller.Dispatch{{Group: []controller.Handle{handle}, Op: op}}, nil
	}
}

// writerSink is the demo terminal sink: one line per emission.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) OnSuccess(group []controller.Handle, outputs []controller.Output) error {
	for _, out := range outputs {
		if _, err := fmt.Fprintf(s.w, "%v\t%v\n", handlesString(group), out.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *writerSink) OnFailure(group []controller.Handle, emitErr error) error {
	_, err := fmt.Fprintf(s.w, "%v\tFAILED: %v\n", handlesString(group), emitErr)
	return err
}

func handlesString(group []controller.Handle) string {
	parts := make([]string, len(group))
	for i, h := range group {
		parts[i] = fmt.Sprint(h)
	}
	return strings.Join(parts, ",")
}
