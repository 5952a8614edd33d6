package player

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/internal/playlist"
	"cadenza/pkg/models"
)

// MaxPosition bounds every position in seconds. Offsets past it are clamped
// so the displayed position stays representable when the duration is unknown.
const MaxPosition = math.MaxInt32

// Config tunes a Controller. Zero values select defaults.
type Config struct {
	PollInterval time.Duration
	HistorySize  int
	Rand         *rand.Rand
	Recorder     Recorder
	Logger       *logrus.Logger
}

// Controller is the playback state machine. It owns the playlists, the
// cursor into the selected playlist, the play-next queue and the history,
// and drives an Engine. All methods are safe for concurrent use; each one
// runs to completion under a single mutex, including poll ticks.
type Controller struct {
	mu sync.Mutex

	engine   Engine
	prober   DurationProber
	recorder Recorder
	logger   *logrus.Logger
	rng      *rand.Rand

	playlists *playlist.Registry
	selected  string
	cursor    playlist.Handle

	queue   []models.Track
	history *History

	status      Status
	nowPlaying  *models.Track
	fromQueue   bool
	duration    int
	position    int
	scrubbing   bool
	scrubTarget int

	poller *Poller
	cycle  uint64
	states *StateManager
}

// NewController creates a stopped controller with no playlists.
func NewController(engine Engine, prober DurationProber, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		engine:    engine,
		prober:    prober,
		recorder:  cfg.Recorder,
		logger:    logger,
		rng:       rng,
		playlists: playlist.NewRegistry(),
		history:   NewHistory(cfg.HistorySize),
		status:    StatusStopped,
		poller:    NewPoller(cfg.PollInterval, logger),
		states:    NewStateManager(),
	}
}

// States exposes the state feed for subscribers.
func (c *Controller) States() *StateManager {
	return c.states
}

// State returns a fresh snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// History returns played tracks, oldest first.
func (c *Controller) History() []models.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Items()
}

// Queue returns the pending play-next tracks in play order.
func (c *Controller) Queue() []models.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Track, len(c.queue))
	copy(out, c.queue)
	return out
}

// Play starts playback. From Stopped it picks a track by the selection
// policy: queue front, then the cursor track, then the head of the selected
// playlist. While playing it restarts the current track from the beginning;
// while paused it does nothing.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked()
}

func (c *Controller) playLocked() error {
	switch c.status {
	case StatusPaused:
		return nil
	case StatusPlaying:
		if c.nowPlaying == nil {
			return nil
		}
		return c.startLocked(*c.nowPlaying, 0, c.fromQueue)
	}
	return c.selectAndStartLocked(0)
}

// selectAndStartLocked applies the selection policy and starts the chosen
// track at offset. Any queue or cursor change is rolled back on failure.
func (c *Controller) selectAndStartLocked(offset float64) error {
	if len(c.queue) > 0 {
		track := c.queue[0]
		c.queue = c.queue[1:]
		if err := c.startLocked(track, offset, true); err != nil {
			c.queue = append([]models.Track{track}, c.queue...)
			return err
		}
		return nil
	}

	seq, ok := c.selectedLocked()
	if !ok {
		return nil
	}
	if !c.cursor.IsNone() {
		return c.startLocked(seq.Track(c.cursor), offset, false)
	}
	head := seq.Head()
	if head.IsNone() {
		return nil
	}
	c.cursor = head
	if err := c.startLocked(seq.Track(head), offset, false); err != nil {
		c.cursor = playlist.None
		return err
	}
	return nil
}

// startLocked loads track and begins playing it at offset. On a load
// failure nothing is changed and a *PlaybackError is returned.
func (c *Controller) startLocked(track models.Track, offset float64, fromQueue bool) error {
	if err := c.engine.Load(track.FilePath); err != nil {
		c.logger.WithFields(logrus.Fields{
			"path":  track.FilePath,
			"error": err,
		}).Warn("Failed to load track")
		return &PlaybackError{Op: "load", Path: track.FilePath, Err: err}
	}

	duration := 0
	if c.prober != nil {
		if d, err := c.prober.Duration(track.FilePath); err != nil {
			c.logger.WithFields(logrus.Fields{
				"path":  track.FilePath,
				"error": err,
			}).Debug("Duration unknown")
		} else if d > 0 {
			duration = int(d)
		}
	}

	offset = clampOffset(offset, duration)
	c.engine.Play(offset)

	t := track
	c.nowPlaying = &t
	c.fromQueue = fromQueue
	c.status = StatusPlaying
	c.duration = duration
	c.position = int(offset)
	c.scrubbing = false

	c.history.Push(track)
	if c.recorder != nil {
		if err := c.recorder.RecordPlay(track, time.Now()); err != nil {
			c.logger.WithError(err).Warn("Failed to record play")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"title":     track.Title,
		"artist":    track.Artist,
		"fromQueue": fromQueue,
		"offset":    int(offset),
	}).Info("Now playing")

	c.startPollLocked()
	c.publishLocked()
	return nil
}

// Pause suspends playback. Only meaningful while playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked()
}

func (c *Controller) pauseLocked() {
	if c.status != StatusPlaying {
		return
	}
	c.engine.Pause()
	c.status = StatusPaused
	c.stopPollLocked()
	c.publishLocked()
}

// Resume continues a paused track without reloading it.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeLocked()
}

func (c *Controller) resumeLocked() {
	if c.status != StatusPaused {
		return
	}
	c.engine.Resume()
	c.status = StatusPlaying
	c.startPollLocked()
	c.publishLocked()
}

// TogglePlay pauses while playing, resumes while paused and plays while
// stopped.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusPlaying:
		c.pauseLocked()
	case StatusPaused:
		c.resumeLocked()
	default:
		return c.selectAndStartLocked(0)
	}
	return nil
}

// Stop halts playback and resets the displayed position.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.status == StatusStopped {
		return
	}
	c.engine.Stop()
	c.status = StatusStopped
	c.position = 0
	c.scrubbing = false
	c.stopPollLocked()
	c.publishLocked()
}

// Next plays the front of the queue when it has entries. Otherwise it
// advances the cursor in the selected playlist, wrapping from tail to
// head, and plays that track. Without a selected playlist it does nothing.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextLocked()
}

func (c *Controller) nextLocked() error {
	if len(c.queue) > 0 {
		return c.selectAndStartLocked(0)
	}
	seq, ok := c.selectedLocked()
	if !ok || seq.Len() == 0 {
		return nil
	}

	target := seq.Head()
	if !c.cursor.IsNone() {
		if n := seq.Next(c.cursor); !n.IsNone() {
			target = n
		}
	}
	return c.moveAndStartLocked(seq, target)
}

// Previous moves the cursor back one track, wrapping from head to tail,
// and plays it. The queue is not consulted.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok := c.selectedLocked()
	if !ok || seq.Len() == 0 {
		return nil
	}

	target := seq.Tail()
	if !c.cursor.IsNone() {
		if p := seq.Prev(c.cursor); !p.IsNone() {
			target = p
		}
	}
	return c.moveAndStartLocked(seq, target)
}

func (c *Controller) moveAndStartLocked(seq *playlist.Sequence, target playlist.Handle) error {
	prev := c.cursor
	c.cursor = target
	if err := c.startLocked(seq.Track(target), 0, false); err != nil {
		c.cursor = prev
		return err
	}
	return nil
}

// Seek moves playback to offset seconds. From Stopped with an idle engine
// it loads and plays a track from offset by the selection policy.
func (c *Controller) Seek(offset float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(offset)
}

func (c *Controller) seekLocked(offset float64) error {
	if c.status == StatusStopped && !c.engine.IsBusy() {
		return c.selectAndStartLocked(offset)
	}
	offset = clampOffset(offset, c.duration)

	c.engine.Seek(offset)
	c.position = int(offset)
	c.scrubbing = false
	if c.status == StatusPlaying {
		c.startPollLocked()
	}
	c.publishLocked()
	return nil
}

// BeginScrub marks the position slider as held. Poll ticks then show the
// scrub target instead of the engine clock.
func (c *Controller) BeginScrub() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scrubbing = true
	c.scrubTarget = c.position
	c.publishLocked()
}

// Scrub moves the scrub target while the slider is held.
func (c *Controller) Scrub(position int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.scrubbing {
		return
	}
	c.scrubTarget = c.clampLocked(position)
	c.position = c.scrubTarget
	c.publishLocked()
}

// EndScrub releases the slider and seeks to position.
func (c *Controller) EndScrub(position float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scrubbing = false
	if err := c.seekLocked(position); err != nil {
		return err
	}
	// a seek from Stopped may start nothing; the release still has to be seen
	c.publishLocked()
	return nil
}

// Close stops playback and the poller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopPollLocked()
	c.engine.Stop()
	c.status = StatusStopped
	c.position = 0
}

func (c *Controller) startPollLocked() {
	c.cycle++
	id := c.cycle
	c.poller.Start(func() bool { return c.pollTick(id) })
}

func (c *Controller) stopPollLocked() {
	c.cycle++
	c.poller.Cancel()
}

// pollTick reconciles the displayed position with the engine clock. It
// returns false when the cycle should end.
func (c *Controller) pollTick(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.cycle || c.status != StatusPlaying {
		return false
	}

	if !c.engine.IsBusy() && c.status != StatusPaused {
		c.autoAdvanceLocked()
		return false
	}

	if c.scrubbing {
		c.position = c.scrubTarget
		c.publishLocked()
		return true
	}

	engineSecs := int(c.engine.Elapsed())
	expected := c.position + 1
	if d := engineSecs - expected; d >= -1 && d <= 1 {
		c.position = expected
	} else {
		c.position = engineSecs
	}
	c.position = c.clampLocked(c.position)
	c.publishLocked()
	return true
}

// autoAdvanceLocked handles the end of a track. If nothing new starts the
// controller stops rather than polling an idle engine.
func (c *Controller) autoAdvanceLocked() {
	c.logger.Debug("Track finished")
	before := c.cycle
	if err := c.nextLocked(); err != nil {
		c.logger.WithError(err).Warn("Auto-advance failed")
	}
	if c.cycle == before {
		c.stopLocked()
	}
}

func (c *Controller) clampLocked(position int) int {
	if position < 0 {
		return 0
	}
	if c.duration > 0 && position > c.duration {
		return c.duration
	}
	return min(position, MaxPosition)
}

// clampOffset bounds offset to [0, duration], or to MaxPosition when the
// duration is unknown.
func clampOffset(offset float64, duration int) float64 {
	limit := float64(MaxPosition)
	if duration > 0 {
		limit = float64(duration)
	}
	return math.Max(0, math.Min(offset, limit))
}

// selectedLocked returns the selected playlist.
func (c *Controller) selectedLocked() (*playlist.Sequence, bool) {
	if c.selected == "" {
		return nil, false
	}
	return c.playlists.Get(c.selected)
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Status:      c.status,
		FromQueue:   c.fromQueue,
		Playlist:    c.selected,
		CursorIndex: -1,
		Position:    c.position,
		Duration:    c.duration,
		Percent:     Percent(c.position, c.duration),
		Label:       ProgressLabel(c.position, c.duration),
		Scrubbing:   c.scrubbing,
		QueueLength: len(c.queue),
		UpdatedAt:   time.Now(),
	}
	if c.nowPlaying != nil {
		t := *c.nowPlaying
		s.Track = &t
	}
	if seq, ok := c.selectedLocked(); ok {
		s.CursorIndex = seq.IndexOf(c.cursor)
	}
	return s
}

func (c *Controller) publishLocked() {
	c.states.Publish(c.snapshotLocked())
}
