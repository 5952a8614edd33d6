//go:build !((linux && cgo) || windows || darwin)

package audio

import "github.com/sirupsen/logrus"

// Available indicates whether audio playback is supported in this build.
// Audio output needs cgo for the native sound libraries.
const Available = false

// Engine is a placeholder for builds without audio output. Files are still
// decoded so format errors surface, but nothing is ever played.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates an engine without audio output.
func NewEngine(sampleRate int, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{logger: logger}
}

// Load validates path and then reports that audio is unavailable.
func (e *Engine) Load(path string) error {
	streamer, _, err := decode(path)
	if err != nil {
		return err
	}
	streamer.Close()
	return ErrAudioUnavailable
}

func (e *Engine) Play(offset float64) {}

func (e *Engine) Pause() {}

func (e *Engine) Resume() {}

func (e *Engine) Stop() {}

func (e *Engine) Seek(offset float64) {}

func (e *Engine) IsBusy() bool { return false }

func (e *Engine) Elapsed() float64 { return 0 }

func (e *Engine) Close() {}
