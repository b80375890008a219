package bench

import (
	"errors"
	"fmt"
)

var (
	// ErrAttachFailed indicates that a Manager could not attach an instrument.
	// The AttachError carrying it wraps the build failure.
	ErrAttachFailed = errors.New("attach failed")

	// ErrClosed indicates an operation on a closed Manager.
	ErrClosed = errors.New("bench manager closed")
)

// Stage is a step of Factory.Build.
type Stage string

const (
	StageFind     Stage = "find"
	StageIdentify Stage = "identify"
	StageParse    Stage = "parse"
	StageDispatch Stage = "dispatch"
	StageAttach   Stage = "attach"
)

// BuildError is a failed Factory.Build.
type BuildError struct {
	Address string
	Stage   Stage
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %s: %v", e.Address, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// AttachError is a failed Manager.Attach, it matches ErrAttachFailed.
type AttachError struct {
	Address string
	Err     error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrAttachFailed, e.Address, e.Err)
}

func (e *AttachError) Unwrap() error { return e.Err }

func (e *AttachError) Is(target error) bool { return target == ErrAttachFailed }
