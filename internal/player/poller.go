package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is the reconciliation period while playing.
const DefaultPollInterval = time.Second

// Poller runs one cancellable periodic task at a time.
type Poller struct {
	interval time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	current *cycle
}

type cycle struct {
	id     string
	cancel context.CancelFunc
}

// NewPoller creates a poller ticking every interval.
func NewPoller(interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Poller{interval: interval, logger: logger}
}

// Start cancels any live cycle and begins a new one. tick is called once
// per interval on the poller goroutine until it returns false or the cycle
// is cancelled.
func (p *Poller) Start(tick func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &cycle{id: uuid.NewString(), cancel: cancel}
	p.current = c

	p.logger.WithField("cycle", c.id).Debug("Poll cycle started")
	go p.run(ctx, c, tick)
}

// Cancel stops the live cycle, if any. It never waits for the cycle
// goroutine, so it is safe to call while holding locks the tick takes.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.cancel()
		p.logger.WithField("cycle", p.current.id).Debug("Poll cycle cancelled")
		p.current = nil
	}
}

// Active reports whether a cycle is live.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

func (p *Poller) run(ctx context.Context, c *cycle, tick func() bool) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !tick() {
				p.finish(c)
				return
			}
		}
	}
}

// finish clears c if it is still the live cycle.
func (p *Poller) finish(c *cycle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == c {
		c.cancel()
		p.current = nil
	}
}
