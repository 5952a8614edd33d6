package playlist

import (
	"fmt"
	"math/rand"

	"cadenza/pkg/models"
)

// Handle identifies a node in a Sequence. The zero Handle refers to no
// node. A handle stays valid until its node is removed or the sequence is
// shuffled; after that Valid reports false for it.
type Handle struct {
	slot int
	gen  uint32
}

// None is the handle that refers to no node.
var None = Handle{}

// IsNone reports whether h refers to no node.
func (h Handle) IsNone() bool {
	return h.slot == 0
}

type node struct {
	track models.Track
	prev  int
	next  int
	gen   uint32
	live  bool
}

// Sequence is an ordered, duplicate-free collection of tracks stored as a
// doubly linked list over an arena of nodes. Slot 0 of the arena is
// reserved so that a zero link means "none".
//
// Sequence is not safe for concurrent use; callers serialise access.
type Sequence struct {
	nodes  []node
	free   []int
	byPath map[string]int
	head   int
	tail   int
	size   int
}

// NewSequence creates an empty sequence.
func NewSequence() *Sequence {
	return &Sequence{
		nodes:  make([]node, 1),
		byPath: make(map[string]int),
	}
}

// Len returns the number of tracks in the sequence.
func (s *Sequence) Len() int {
	return s.size
}

// Append links track at the tail. It returns false without modifying the
// sequence when a track with the same file path is already present.
func (s *Sequence) Append(track models.Track) bool {
	if _, exists := s.byPath[track.FilePath]; exists {
		return false
	}
	s.link(track)
	return true
}

// link allocates a node for track and attaches it at the tail.
func (s *Sequence) link(track models.Track) int {
	var slot int
	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.nodes = append(s.nodes, node{})
		slot = len(s.nodes) - 1
	}

	nd := &s.nodes[slot]
	nd.track = track
	nd.prev = s.tail
	nd.next = 0
	nd.live = true

	if s.tail == 0 {
		s.head = slot
	} else {
		s.nodes[s.tail].next = slot
	}
	s.tail = slot
	s.byPath[track.FilePath] = slot
	s.size++
	return slot
}

// Remove unlinks the node referenced by h. The handle, and any copy of
// it, is invalid afterwards. Removing through an invalid handle is a
// programming error and panics.
func (s *Sequence) Remove(h Handle) {
	s.mustValid(h)
	nd := &s.nodes[h.slot]

	if nd.prev != 0 {
		s.nodes[nd.prev].next = nd.next
	} else {
		s.head = nd.next
	}
	if nd.next != 0 {
		s.nodes[nd.next].prev = nd.prev
	} else {
		s.tail = nd.prev
	}

	delete(s.byPath, nd.track.FilePath)
	s.retire(h.slot)
	s.size--
}

// retire tombstones a slot and makes it available for reuse.
func (s *Sequence) retire(slot int) {
	nd := &s.nodes[slot]
	nd.track = models.Track{}
	nd.prev, nd.next = 0, 0
	nd.live = false
	nd.gen++
	s.free = append(s.free, slot)
}

// Tracks returns the tracks in list order. The sequence is not modified.
func (s *Sequence) Tracks() []models.Track {
	tracks := make([]models.Track, 0, s.size)
	for slot := s.head; slot != 0; slot = s.nodes[slot].next {
		tracks = append(tracks, s.nodes[slot].track)
	}
	return tracks
}

// Shuffle rebuilds the sequence in a uniformly random order using a
// Fisher-Yates permutation drawn from r. Every node is recreated, so all
// handles issued before the call become invalid.
func (s *Sequence) Shuffle(r *rand.Rand) {
	tracks := s.Tracks()
	for i := len(tracks) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}

	for slot := s.head; slot != 0; {
		next := s.nodes[slot].next
		s.retire(slot)
		slot = next
	}
	s.head, s.tail, s.size = 0, 0, 0
	s.byPath = make(map[string]int, len(tracks))

	for _, t := range tracks {
		s.link(t)
	}
}

// Valid reports whether h refers to a live node of this sequence.
func (s *Sequence) Valid(h Handle) bool {
	if h.slot <= 0 || h.slot >= len(s.nodes) {
		return false
	}
	nd := s.nodes[h.slot]
	return nd.live && nd.gen == h.gen
}

func (s *Sequence) mustValid(h Handle) {
	if !s.Valid(h) {
		panic(fmt.Sprintf("playlist: invalid handle %d/%d", h.slot, h.gen))
	}
}

func (s *Sequence) handle(slot int) Handle {
	if slot == 0 {
		return None
	}
	return Handle{slot: slot, gen: s.nodes[slot].gen}
}

// Head returns the first node, or None when the sequence is empty.
func (s *Sequence) Head() Handle {
	return s.handle(s.head)
}

// Tail returns the last node, or None when the sequence is empty.
func (s *Sequence) Tail() Handle {
	return s.handle(s.tail)
}

// Next returns the node after h, or None at the tail.
func (s *Sequence) Next(h Handle) Handle {
	s.mustValid(h)
	return s.handle(s.nodes[h.slot].next)
}

// Prev returns the node before h, or None at the head.
func (s *Sequence) Prev(h Handle) Handle {
	s.mustValid(h)
	return s.handle(s.nodes[h.slot].prev)
}

// Track returns the track stored at h.
func (s *Sequence) Track(h Handle) models.Track {
	s.mustValid(h)
	return s.nodes[h.slot].track
}

// Update applies fn to the track stored at h. The file path is the
// sequence key and cannot be changed through Update.
func (s *Sequence) Update(h Handle, fn func(*models.Track)) {
	s.mustValid(h)
	nd := &s.nodes[h.slot]
	path := nd.track.FilePath
	fn(&nd.track)
	nd.track.FilePath = path
}

// At returns the node at position index in list order, or None when the
// index is out of range.
func (s *Sequence) At(index int) Handle {
	if index < 0 || index >= s.size {
		return None
	}
	slot := s.head
	for i := 0; i < index; i++ {
		slot = s.nodes[slot].next
	}
	return s.handle(slot)
}

// IndexOf returns the list position of h, or -1 for an invalid handle.
func (s *Sequence) IndexOf(h Handle) int {
	if !s.Valid(h) {
		return -1
	}
	i := 0
	for slot := s.head; slot != 0; slot = s.nodes[slot].next {
		if slot == h.slot {
			return i
		}
		i++
	}
	return -1
}

// Find returns the node holding the track with the given file path, or
// None when it is not a member.
func (s *Sequence) Find(filePath string) Handle {
	slot, ok := s.byPath[filePath]
	if !ok {
		return None
	}
	return s.handle(slot)
}

// Contains reports whether a track with the given file path is a member.
func (s *Sequence) Contains(filePath string) bool {
	_, ok := s.byPath[filePath]
	return ok
}
