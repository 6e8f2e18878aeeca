package surf

import "github.com/pingcap/errors"

// Construction-time precondition errors. A lookup miss is never one of
// these: it is a plain (value, false) result, not an error.
var (
	ErrEmptyInput     = errors.New("surf: key set is empty")
	ErrUnsorted       = errors.New("surf: keys are not strictly sorted")
	ErrLengthMismatch = errors.New("surf: keys and values have different lengths")
	ErrReservedByte   = errors.New("surf: key contains the reserved terminator byte 0xff")
	ErrCorrupted      = errors.New("surf: corrupted or misaligned serialized buffer")
)
