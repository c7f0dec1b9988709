package health

import "errors"

// ErrCheckTimeout is reported for a check still running when the readiness
// timeout expired.
var ErrCheckTimeout = errors.New("health: check timeout")
