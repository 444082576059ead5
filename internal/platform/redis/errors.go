package redis

import "errors"

// ErrMalformedEnvelope is returned when a claimed queue entry cannot be decoded.
// The entry is dropped from the processing list before the error is returned.
var ErrMalformedEnvelope = errors.New("malformed job envelope")
