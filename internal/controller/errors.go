package controller

import (
	"errors"
	"fmt"
)

// DecodeError reports a record whose raw payload could not be decoded.
//
// Decode failure is fatal for the invocation: the record is dropped before
// any operation is dispatched and no controller state is mutated. It is not
// retried: malformed input stays malformed.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record: %v", e.Err)
}

// Unwrap returns the decoder's underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is a DecodeError.
// Uses errors.As to handle wrapped errors.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// DispatchError reports that the processing function (or tick hook) itself
// failed outright, before producing any dispatches.
//
// This is fatal for the whole invocation and propagates out of Invoke. A
// best-effort failure completion for the triggering group is still queued
// first, so downstream accounting is not silently lost. Individual operation
// failures are NOT dispatch errors; they route through the sink's failure
// path and abort nothing.
type DispatchError struct {
	// Tick is true when the failing call was the tick hook.
	Tick bool

	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Tick {
		return fmt.Sprintf("tick dispatch failed: %v", e.Err)
	}
	return fmt.Sprintf("record dispatch failed: %v", e.Err)
}

// Unwrap returns the processing function's underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsDispatchError reports whether err is a DispatchError.
// Uses errors.As to handle wrapped errors.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}
