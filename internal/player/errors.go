package player

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad matches any *PlaybackError.
	ErrLoad            = errors.New("audio file could not be loaded")
	ErrIndexOutOfRange = errors.New("track index out of range")
)

// PlaybackError reports a track that could not be loaded. The controller
// state is left as it was before the failing call.
type PlaybackError struct {
	Op   string
	Path string
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

func (e *PlaybackError) Is(target error) bool {
	return target == ErrLoad
}
