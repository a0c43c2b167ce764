package reconcile

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable is wrapped by every failure of the price query.
var ErrStoreUnavailable = errors.New("price store unavailable")

// Stage names a step of a reconciliation run.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageQuery     Stage = "query"
	StageAggregate Stage = "aggregate"
	StageFlag      Stage = "flag"
)

// Error wraps a reconciliation failure with the stage where it occurred.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reconcile %s: %s", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
