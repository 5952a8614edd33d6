package player

import "cadenza/pkg/models"

// DefaultHistorySize bounds the in-memory play history.
const DefaultHistorySize = 500

// History is a bounded, oldest-first log of played tracks. When full, the
// oldest entry is overwritten.
type History struct {
	items []models.Track
	start int
	size  int
}

// NewHistory creates a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{items: make([]models.Track, capacity)}
}

// Push appends a track, evicting the oldest one when full.
func (h *History) Push(track models.Track) {
	if h.size < len(h.items) {
		h.items[(h.start+h.size)%len(h.items)] = track
		h.size++
		return
	}
	h.items[h.start] = track
	h.start = (h.start + 1) % len(h.items)
}

// At returns the i-th oldest retained entry.
func (h *History) At(i int) (models.Track, bool) {
	if i < 0 || i >= h.size {
		return models.Track{}, false
	}
	return h.items[(h.start+i)%len(h.items)], true
}

// Items returns the retained entries, oldest first.
func (h *History) Items() []models.Track {
	out := make([]models.Track, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.items[(h.start+i)%len(h.items)]
	}
	return out
}

func (h *History) Len() int { return h.size }

func (h *History) Cap() int { return len(h.items) }
