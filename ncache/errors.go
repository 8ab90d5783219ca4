package ncache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by a backend used after Close.
var ErrClosed = errors.New("ncache: backend closed")

// ErrCorrupt is matched by every *CorruptError.
var ErrCorrupt = errors.New("ncache: corrupt backing store")

// CorruptError reports backing storage that exists but cannot be decoded.
// The cache does not try to repair it.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("ncache: decode %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }
