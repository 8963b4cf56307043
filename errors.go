package bob

import (
	"errors"

	"github.com/TheCount/bob/internal/container"
)

// ErrInvalidArgument reports a bad argument, such as a nil Config
// receiver passed to a setter.
var ErrInvalidArgument = errors.New("bob: invalid argument")

// ErrExists reports that Create was asked to create a file that
// already exists.
var ErrExists = errors.New("bob: file already exists")

// ErrClosed reports use of a handle after Close.
var ErrClosed = errors.New("bob: handle already closed")

// ErrCorrupt classifies every format-level failure: varint
// overflow/overlong sequences, unknown record or header config ids,
// unexpected EOF inside a record, and header-validation failure.
var ErrCorrupt = container.ErrCorrupt
