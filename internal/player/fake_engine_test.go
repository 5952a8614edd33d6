package player

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/pkg/models"
)

var errUnsupported = errors.New("unsupported format")

// fakeEngine records calls and lets tests drive the stream clock.
type fakeEngine struct {
	mu      sync.Mutex
	loaded  string
	busy    bool
	paused  bool
	elapsed float64
	fail    map[string]bool
	loads   []string
	plays   []float64
	seeks   []float64
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{fail: make(map[string]bool)}
}

func (e *fakeEngine) Load(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail[path] {
		return errUnsupported
	}
	e.loaded = path
	e.busy = false
	e.paused = false
	e.loads = append(e.loads, path)
	return nil
}

func (e *fakeEngine) Play(offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = true
	e.elapsed = offset
	e.plays = append(e.plays, offset)
}

func (e *fakeEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

func (e *fakeEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	e.paused = false
}

func (e *fakeEngine) Seek(offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.elapsed = offset
	e.seeks = append(e.seeks, offset)
}

func (e *fakeEngine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

func (e *fakeEngine) Elapsed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// finish simulates the stream reaching its end.
func (e *fakeEngine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
}

func (e *fakeEngine) setElapsed(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.elapsed = seconds
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

type fakeProber map[string]float64

func (p fakeProber) Duration(path string) (float64, error) {
	d, ok := p[path]
	if !ok {
		return 0, errors.New("no duration")
	}
	return d, nil
}

type memRecorder struct {
	played []models.Track
}

func (r *memRecorder) RecordPlay(track models.Track, _ time.Time) error {
	r.played = append(r.played, track)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func track(name string) models.Track {
	return models.Track{Title: name, Artist: "Unknown", FilePath: "/music/" + name + ".mp3"}
}

func tracks(names ...string) []models.Track {
	out := make([]models.Track, len(names))
	for i, n := range names {
		out[i] = track(n)
	}
	return out
}

// newTestController returns a controller whose poller never fires on its
// own; tests drive ticks with tick().
func newTestController(t *testing.T, engine Engine, prober DurationProber) *Controller {
	t.Helper()
	c := NewController(engine, prober, Config{
		PollInterval: time.Hour,
		Rand:         rand.New(rand.NewSource(1)),
		Logger:       quietLogger(),
	})
	t.Cleanup(c.Close)
	return c
}

// withPlaylist creates and selects a playlist holding names.
func withPlaylist(t *testing.T, c *Controller, name string, names ...string) {
	t.Helper()
	if err := c.CreatePlaylist(name); err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}
	if _, err := c.AddTracks(name, tracks(names...)); err != nil {
		t.Fatalf("Failed to add tracks: %v", err)
	}
	if err := c.SelectPlaylist(name); err != nil {
		t.Fatalf("Failed to select playlist: %v", err)
	}
}

func tick(c *Controller) bool {
	c.mu.Lock()
	id := c.cycle
	c.mu.Unlock()
	return c.pollTick(id)
}

func nowPlaying(t *testing.T, c *Controller) string {
	t.Helper()
	s := c.State()
	if s.Track == nil {
		return ""
	}
	return s.Track.Title
}

func historyTitles(c *Controller) []string {
	var out []string
	for _, tr := range c.History() {
		out = append(out, tr.Title)
	}
	return out
}
