package container

import "errors"

// ErrCorrupt classifies every format-level failure: varint
// overflow/overlong, unknown record or config id, unexpected EOF
// inside a record, and header-validation failure. The bob package
// re-exports this as bob.ErrCorrupt.
var ErrCorrupt = errors.New("bob: illegal byte sequence")
