package infer

import (
	"fmt"

	"github.com/slate-ml/slate/internal/types"
)

// UnificationError reports two types that could not be reconciled. It is
// recoverable at the site that attempted unification; the inferencer
// promotes it to a FatalTypeError.
type UnificationError struct {
	Left   types.Type
	Right  types.Type
	Reason string
}

func (e *UnificationError) Error() string {
	return fmt.Sprintf("cannot unify `%s` with `%s`: %s",
		types.String(e.Left), types.String(e.Right), e.Reason)
}

func unificationErr(left, right types.Type, format string, args ...interface{}) error {
	return &UnificationError{Left: left, Right: right, Reason: fmt.Sprintf(format, args...)}
}

// FatalTypeError aborts an entire inference pass: an unresolved identifier,
// an impossible internal state, or an unreconcilable constraint. No checked
// types are published when a pass fails.
type FatalTypeError struct {
	Msg string
}

func (e *FatalTypeError) Error() string {
	return "fatal type error: " + e.Msg
}

func fatalErr(format string, args ...interface{}) error {
	return &FatalTypeError{Msg: fmt.Sprintf(format, args...)}
}
