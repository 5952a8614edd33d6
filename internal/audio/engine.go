//go:build (linux && cgo) || windows || darwin

package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/sirupsen/logrus"
)

// Available indicates whether audio playback is supported in this build.
const Available = true

// Engine plays one decoded file at a time through the system speaker.
type Engine struct {
	mu sync.Mutex

	logger      *logrus.Logger
	sampleRate  beep.SampleRate
	initialized bool

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl

	// gen numbers each stream handed to the speaker; active holds the gen
	// of the stream that has not yet reached its end, or 0.
	gen    atomic.Uint64
	active atomic.Uint64
}

// NewEngine creates an engine that resamples everything to sampleRate.
func NewEngine(sampleRate int, logger *logrus.Logger) *Engine {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		logger:     logger,
		sampleRate: beep.SampleRate(sampleRate),
	}
}

// initSpeakerLocked initializes the speaker if not already done.
func (e *Engine) initSpeakerLocked() error {
	if e.initialized {
		return nil
	}
	if err := speaker.Init(e.sampleRate, e.sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

// Load decodes path and makes it the current stream. On failure the
// previous stream is left untouched.
func (e *Engine) Load(path string) error {
	streamer, format, err := decode(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.initSpeakerLocked(); err != nil {
		streamer.Close()
		return err
	}

	e.stopLocked()
	e.streamer = streamer
	e.format = format
	return nil
}

// Play starts the loaded stream at offset seconds.
func (e *Engine) Play(offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return
	}
	if e.ctrl != nil {
		speaker.Clear()
		e.ctrl = nil
	}
	if err := e.seekLocked(offset); err != nil {
		e.logger.WithError(err).Warn("Failed to seek before play")
	}

	resampled := beep.Resample(4, e.format.SampleRate, e.sampleRate, e.streamer)
	e.ctrl = &beep.Ctrl{Streamer: resampled, Paused: false}

	g := e.gen.Add(1)
	e.active.Store(g)
	speaker.Play(beep.Seq(e.ctrl, beep.Callback(func() {
		e.active.CompareAndSwap(g, 0)
	})))
}

// Pause pauses playback. The engine stays busy.
func (e *Engine) Pause() {
	e.setPaused(true)
}

// Resume resumes playback.
func (e *Engine) Resume() {
	e.setPaused(false)
}

func (e *Engine) setPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = paused
		speaker.Unlock()
	}
}

// Stop halts playback. The loaded file must be loaded again to play.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.initialized {
		speaker.Clear()
	}
	e.active.Store(0)
	if e.streamer != nil {
		if err := e.streamer.Close(); err != nil {
			e.logger.WithError(err).Debug("Failed to close stream")
		}
		e.streamer = nil
	}
	e.ctrl = nil
}

// Seek moves the current stream to offset seconds.
func (e *Engine) Seek(offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return
	}
	speaker.Lock()
	err := e.seekLocked(offset)
	speaker.Unlock()
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"offset": offset,
			"error":  err,
		}).Warn("Failed to seek")
	}
}

func (e *Engine) seekLocked(offset float64) error {
	n := e.format.SampleRate.N(time.Duration(offset * float64(time.Second)))
	if n < 0 {
		n = 0
	}
	if last := e.streamer.Len() - 1; last >= 0 && n > last {
		n = last
	}
	return e.streamer.Seek(n)
}

// IsBusy reports whether a stream is playing or paused before its end.
func (e *Engine) IsBusy() bool {
	return e.active.Load() != 0
}

// Elapsed returns the position of the current stream in seconds.
func (e *Engine) Elapsed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// Close stops playback and releases the speaker.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	if e.initialized {
		speaker.Close()
		e.initialized = false
	}
}
