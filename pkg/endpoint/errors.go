package endpoint

import "github.com/pkg/errors"

// ErrNotRunning is returned by Send and OnDatagram when the endpoint is not
// in the Running state.
var ErrNotRunning = errors.New("endpoint is not running")

// ErrAlreadyRunning is returned by Start when the endpoint has already left
// the Init state.
var ErrAlreadyRunning = errors.New("endpoint already started")

// ErrEmptyPayload is returned by Send for a zero-length payload; a single
// payload's length must be greater than zero.
var ErrEmptyPayload = errors.New("endpoint: payload must not be empty")
