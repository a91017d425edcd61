package source

import "errors"

// ErrExhausted is returned by NextPlane once every plane has been yielded.
var ErrExhausted = errors.New("source: stream exhausted")
