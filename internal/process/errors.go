package process

import "errors"

// Sentinel errors classifying every failure mode of the package. Returned
// errors wrap one of these, so callers can dispatch with errors.Is while the
// error text retains the underlying OS diagnostic.
var (
	// ErrInvalidArgument reports malformed input, detected before any OS
	// side effect.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted reports an allocation or pipe-creation failure.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrSpawnFailed reports that the OS call creating the process failed,
	// including "executable not found" and "permission denied".
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrCapabilityDenied reports an operation attempted on a stream or
	// handle that was not configured for it.
	ErrCapabilityDenied = errors.New("capability denied")

	// ErrAlreadyClosed reports a second close of the same stream.
	ErrAlreadyClosed = errors.New("already closed")

	// ErrIO reports a failed read, write, wait or kill OS call.
	ErrIO = errors.New("i/o error")

	// ErrInvalidHandle reports an operation on a nil or destroyed handle.
	ErrInvalidHandle = errors.New("invalid handle")
)
