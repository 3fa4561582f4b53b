package controller

import "time"

// Handle is an opaque reference to a raw host input. The controller never
// inspects it; it travels with completion groups so the sink can acknowledge
// or anchor downstream output against the originating record.
type Handle any

// RawRecord is one undecoded input from the host: the payload bytes plus the
// handle the host uses for acknowledgment.
type RawRecord struct {
	Handle Handle
	Data   []byte
}

// Release drops the payload so the controller does not retain host buffers
// past decoding. The host may pool or reuse the backing storage; holding it
// across invocations inflates memory the host cannot reclaim.
//
// Safe to call more than once.
func (r *RawRecord) Release() {
	r.Data = nil
}

// Signal is one unit of work from the host: a record or the reserved tick.
type Signal struct {
	record *RawRecord
}

// RecordSignal wraps a raw record for Invoke.
func RecordSignal(rec *RawRecord) Signal {
	return Signal{record: rec}
}

// TickSignal returns the no-payload periodic signal. Ticks flush previously
// completed work even when no new input arrives.
func TickSignal() Signal {
	return Signal{}
}

// IsTick reports whether the signal carries no record payload.
func (s Signal) IsTick() bool {
	return s.record == nil
}

// Event is a decoded record: the typed (timestamp, value) pair the
// processing function consumes.
type Event struct {
	Timestamp time.Time
	Value     any
}

// Output is one (timestamp, value) pair produced by an asynchronous
// operation.
type Output struct {
	Timestamp time.Time
	Value     any
}

// Decoder turns a raw host payload into a typed Event.
//
// Decode failure is fatal for the invocation that carried the record: the
// record is dropped without dispatching any operation and Invoke returns a
// DecodeError.
type Decoder interface {
	Decode(data []byte) (Event, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(data []byte) (Event, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(data []byte) (Event, error) {
	return f(data)
}
