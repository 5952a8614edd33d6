package player

import (
	"time"

	"cadenza/pkg/models"
)

// Engine is the audio decode/output capability the controller drives.
//
// Load must leave the currently loaded stream untouched when it fails, and
// replace (stopping) it when it succeeds. IsBusy reports whether a stream
// is playing or paused and has not yet reached its end.
type Engine interface {
	Load(path string) error
	Play(offsetSeconds float64)
	Pause()
	Resume()
	Stop()
	Seek(offsetSeconds float64)
	IsBusy() bool
	Elapsed() float64
}

// DurationProber looks up a track's length out of band. It is best effort:
// an error means the duration is unknown.
type DurationProber interface {
	Duration(path string) (float64, error)
}

// Recorder receives every successfully started track, e.g. a durable play log.
type Recorder interface {
	RecordPlay(track models.Track, playedAt time.Time) error
}
