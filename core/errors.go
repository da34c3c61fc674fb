package core

import "errors"

// ErrChannelClosed is returned by Spawn once the runtime's inbox has been
// torn down. Stop spawning, or create a new Runtime.
var ErrChannelClosed = errors.New("coop: inbox channel closed")

// ErrNilComputation is returned when a nil Computation is spawned.
var ErrNilComputation = errors.New("coop: nil computation")
