package player

import (
	"sync"
	"time"

	"cadenza/pkg/models"
)

// Status is the playback state of the controller.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// State is a snapshot of what a UI needs to render the player.
type State struct {
	Status      Status        `json:"status"`
	Track       *models.Track `json:"track,omitempty"`
	FromQueue   bool          `json:"fromQueue"`
	Playlist    string        `json:"playlist,omitempty"`
	CursorIndex int           `json:"cursorIndex"` // -1 when no cursor
	Position    int           `json:"position"`    // in seconds
	Duration    int           `json:"duration"`    // in seconds, 0 when unknown
	Percent     float64       `json:"percent"`
	Label       string        `json:"label"`
	Scrubbing   bool          `json:"scrubbing"`
	QueueLength int           `json:"queueLength"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// StateManager holds the latest published state and notifies listeners
type StateManager struct {
	state     State
	mutex     sync.RWMutex
	listeners []chan *State
}

// NewStateManager creates a new state manager
func NewStateManager() *StateManager {
	return &StateManager{
		state: State{
			Status:      StatusStopped,
			CursorIndex: -1,
			Label:       ProgressLabel(0, 0),
			UpdatedAt:   time.Now(),
		},
		listeners: make([]chan *State, 0),
	}
}

// GetState returns the last published state (thread-safe)
func (sm *StateManager) GetState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.state
}

// Publish replaces the current state and fans it out to listeners
func (sm *StateManager) Publish(state State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if state.Track != nil {
		t := *state.Track
		state.Track = &t
	}
	state.UpdatedAt = time.Now()
	sm.state = state
	sm.notifyListeners()
}

// Subscribe adds a listener for state changes
func (sm *StateManager) Subscribe() <-chan *State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan *State, 10)
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (sm *StateManager) Unsubscribe(ch <-chan *State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// ListenerCount returns the number of live subscribers
func (sm *StateManager) ListenerCount() int {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return len(sm.listeners)
}

// notifyListeners sends the state to every subscriber. A listener whose
// buffer is full is dropped and its channel closed. Must be called with
// the lock held.
func (sm *StateManager) notifyListeners() {
	kept := sm.listeners[:0]
	for _, listener := range sm.listeners {
		stateCopy := sm.state
		select {
		case listener <- &stateCopy:
			kept = append(kept, listener)
		default:
			close(listener)
		}
	}
	for i := len(kept); i < len(sm.listeners); i++ {
		sm.listeners[i] = nil
	}
	sm.listeners = kept
}
