package spritz

import "github.com/pkg/errors"

// Sentinel errors. Errors returned by this package wrap one of these; use
// errors.Cause to recover them.
var (
	// ErrInvalidState is returned when Batch methods are called out of order:
	// Draw or Flush outside of Begin/End, Begin while open, End while closed.
	ErrInvalidState = errors.New("invalid batch state")

	// ErrInvalidArgument is returned for bad construction or setup arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDisposed is returned by any Batch method called after Dispose.
	ErrDisposed = errors.New("batch disposed")
)
