package backend

import "github.com/pkg/errors"

// Shared error taxonomy. Platform layers wrap their own failures with
// errors.Wrap so callers can still match these sentinels with errors.Is.
var (
	// ErrNotSupported means the backend or device lacks the requested
	// capability, typically force feedback. Safe to ignore.
	ErrNotSupported = errors.New("not supported by this backend or device")

	// ErrDisconnected means the target device vanished between the request
	// and the write.
	ErrDisconnected = errors.New("device is not connected")

	// ErrInvalidID means a handle or logical ID does not refer to anything
	// known, usually because it was invalidated.
	ErrInvalidID = errors.New("unknown id or handle")
)
