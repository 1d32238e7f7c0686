package rtti

import (
	"fmt"

	"rtgen/internal/diag"
)

// ErrorKind classifies builder failures.
type ErrorKind uint8

const (
	// ErrProtocol: push or finalize on a finalized builder.
	ErrProtocol ErrorKind = iota + 1
	// ErrShapeMismatch: the collected fields disagree with a concrete storage type.
	ErrShapeMismatch
	// ErrInvalidField: a push request the builder cannot lower.
	ErrInvalidField
	// ErrBackend: a collaborator call failed.
	ErrBackend
)

func (k ErrorKind) String() string {
	switch k {
	case ErrProtocol:
		return "protocol violation"
	case ErrShapeMismatch:
		return "shape mismatch"
	case ErrInvalidField:
		return "invalid field"
	case ErrBackend:
		return "backend failure"
	default:
		return "unknown"
	}
}

// Error is an internal failure of descriptor construction. Callers treat it
// as fatal for the unit being generated.
type Error struct {
	Kind   ErrorKind
	Symbol string // offending storage, when known
	Op     string
	Field  int // field index for shape mismatches, -1 otherwise
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Symbol != "" {
		msg += fmt.Sprintf(" on %q", e.Symbol)
	}
	if e.Field >= 0 && e.Kind == ErrShapeMismatch {
		msg += fmt.Sprintf(" at field %d", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code maps the failure to its diagnostic code.
func (e *Error) Code() diag.Code {
	switch e.Kind {
	case ErrProtocol:
		return diag.RttiProtocol
	case ErrShapeMismatch:
		return diag.RttiShapeMismatch
	case ErrInvalidField:
		return diag.RttiUnsupported
	default:
		return diag.RttiBackend
	}
}
