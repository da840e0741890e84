package metalangle

import "errors"

// Common errors returned by vertex state synchronization and draw setup.
var (
	// ErrResource is returned when a backend allocation or upload fails.
	// The failing call leaves previously valid slot state and caches
	// untouched; the caller should abort the current draw.
	ErrResource = errors.New("metalangle: backend resource allocation failed")

	// ErrUnsupportedFormat is returned when the capability table has no
	// conversion rule for a vertex format. This signals a defect in the
	// table or the caller's request; it is never silently approximated.
	ErrUnsupportedFormat = errors.New("metalangle: vertex format has no conversion rule")

	// ErrUnsupportedIndexType is returned when an index type is not
	// natively indexable and no widening rule exists for it.
	ErrUnsupportedIndexType = errors.New("metalangle: index type has no widening rule")

	// ErrStaleState is returned when draw setup observes a slot still
	// marked for resync. Unreachable under the single-threaded contract;
	// if seen, it indicates a logic bug in the caller's sync ordering.
	ErrStaleState = errors.New("metalangle: draw setup observed unsynced attribute state")

	// ErrBufferSize is returned for a zero-size buffer creation, for
	// SetData with a length other than the buffer's fixed size, and for
	// SetSubData ranges past the end. Buffers do not resize; a different
	// size needs a new Buffer.
	ErrBufferSize = errors.New("metalangle: bad buffer size or range")

	// ErrClientData is returned when a draw would read past the end of a
	// client-memory attribute or index array.
	ErrClientData = errors.New("metalangle: client array shorter than draw range")

	// ErrNoDevice is returned when a device provider does not expose
	// usable HAL device and queue handles.
	ErrNoDevice = errors.New("metalangle: provider does not expose HAL device")

	// ErrContextDestroyed is returned when operations are attempted on a
	// destroyed context.
	ErrContextDestroyed = errors.New("metalangle: context is destroyed")
)
