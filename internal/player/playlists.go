package player

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"cadenza/internal/playlist"
	"cadenza/pkg/models"
)

// PlaylistInfo summarises one playlist.
type PlaylistInfo struct {
	Name       string `json:"name"`
	TrackCount int    `json:"trackCount"`
	Selected   bool   `json:"selected"`
}

// CreatePlaylist adds an empty playlist.
func (c *Controller) CreatePlaylist(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.playlists.Create(name); err != nil {
		return err
	}
	c.logger.WithField("playlist", name).Info("Playlist created")
	return nil
}

// DeletePlaylist removes a playlist. Deleting the selected playlist stops
// playback and clears the selection.
func (c *Controller) DeletePlaylist(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.playlists.Get(name); !ok {
		return playlist.ErrPlaylistNotFound
	}
	if name == c.selected {
		c.stopLocked()
		c.selected = ""
		c.cursor = playlist.None
	}
	c.playlists.Delete(name)
	c.logger.WithField("playlist", name).Info("Playlist deleted")
	c.publishLocked()
	return nil
}

// SelectPlaylist makes name the active playlist with the cursor on its
// first track. Playback of the current track is not interrupted.
func (c *Controller) SelectPlaylist(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok := c.playlists.Get(name)
	if !ok {
		return playlist.ErrPlaylistNotFound
	}
	c.selected = name
	c.cursor = seq.Head()
	c.publishLocked()
	return nil
}

// Selected returns the active playlist name, or "" when none.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Playlists lists playlists in creation order.
func (c *Controller) Playlists() []PlaylistInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.playlists.Names()
	infos := make([]PlaylistInfo, 0, len(names))
	for _, name := range names {
		seq, _ := c.playlists.Get(name)
		infos = append(infos, PlaylistInfo{
			Name:       name,
			TrackCount: seq.Len(),
			Selected:   name == c.selected,
		})
	}
	return infos
}

// PlaylistTracks returns the tracks of name in order.
func (c *Controller) PlaylistTracks(name string) ([]models.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok := c.playlists.Get(name)
	if !ok {
		return nil, playlist.ErrPlaylistNotFound
	}
	return seq.Tracks(), nil
}

// AddTracks appends tracks to name, skipping any already present. It
// returns how many were added.
func (c *Controller) AddTracks(name string, tracks []models.Track) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok := c.playlists.Get(name)
	if !ok {
		return 0, playlist.ErrPlaylistNotFound
	}
	added := 0
	for _, t := range tracks {
		if seq.Append(t) {
			added++
		}
	}
	if added > 0 {
		c.logger.WithFields(logrus.Fields{
			"playlist": name,
			"added":    added,
			"skipped":  len(tracks) - added,
		}).Info("Tracks added to playlist")
		c.publishLocked()
	}
	return added, nil
}

// RemoveAt removes the track at index from name. If the cursor pointed at
// it, the cursor is cleared.
func (c *Controller) RemoveAt(name string, index int) (models.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, h, err := c.locateLocked(name, index)
	if err != nil {
		return models.Track{}, err
	}
	track := seq.Track(h)
	if name == c.selected && h == c.cursor {
		c.cursor = playlist.None
	}
	seq.Remove(h)
	c.publishLocked()
	return track, nil
}

// Shuffle randomises the order of name. The cursor follows its track.
func (c *Controller) Shuffle(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok := c.playlists.Get(name)
	if !ok {
		return playlist.ErrPlaylistNotFound
	}
	cursorPath := ""
	if name == c.selected && !c.cursor.IsNone() {
		cursorPath = seq.Track(c.cursor).FilePath
	}
	seq.Shuffle(c.rng)
	if name == c.selected {
		c.cursor = playlist.None
		if cursorPath != "" {
			c.cursor = seq.Find(cursorPath)
		}
	}
	c.publishLocked()
	return nil
}

// Upvote increments the upvote count of the track at index.
func (c *Controller) Upvote(name string, index int) (models.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, h, err := c.locateLocked(name, index)
	if err != nil {
		return models.Track{}, err
	}
	seq.Update(h, func(t *models.Track) { t.Upvotes++ })
	track := seq.Track(h)
	if c.nowPlaying != nil && c.nowPlaying.FilePath == track.FilePath {
		c.nowPlaying.Upvotes = track.Upvotes
	}
	c.publishLocked()
	return track, nil
}

// QueueNext appends the track at index to the play-next queue.
func (c *Controller) QueueNext(name string, index int) (models.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, h, err := c.locateLocked(name, index)
	if err != nil {
		return models.Track{}, err
	}
	track := seq.Track(h)
	c.queue = append(c.queue, track)
	c.logger.WithFields(logrus.Fields{
		"title": track.Title,
		"queue": len(c.queue),
	}).Info("Track queued")
	c.publishLocked()
	return track, nil
}

// PlayAt selects name, moves the cursor to index and plays that track. On
// a load failure the previous selection and cursor are restored.
func (c *Controller) PlayAt(name string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, h, err := c.locateLocked(name, index)
	if err != nil {
		return err
	}
	prevSelected, prevCursor := c.selected, c.cursor
	c.selected = name
	c.cursor = h
	if err := c.startLocked(seq.Track(h), 0, false); err != nil {
		c.selected, c.cursor = prevSelected, prevCursor
		return err
	}
	return nil
}

// ImportPlaylist creates name holding tracks, dropping duplicates.
func (c *Controller) ImportPlaylist(name string, tracks []models.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, err := c.playlists.Create(name)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if !seq.Append(t) {
			c.logger.WithFields(logrus.Fields{
				"playlist": name,
				"path":     t.FilePath,
			}).Warn("Skipping duplicate playlist entry")
		}
	}
	return nil
}

// ExportPlaylists returns every playlist's tracks along with the names in
// creation order.
func (c *Controller) ExportPlaylists() ([]string, map[string][]models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.playlists.Names()
	out := make(map[string][]models.Track, len(names))
	for _, name := range names {
		seq, _ := c.playlists.Get(name)
		out[name] = seq.Tracks()
	}
	return names, out
}

// ForgetTrack reacts to a file leaving the library: playback stops if it
// is the now-playing track. Playlists keep their copies.
func (c *Controller) ForgetTrack(filePath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nowPlaying == nil || c.nowPlaying.FilePath != filePath || c.status == StatusStopped {
		return false
	}
	c.logger.WithField("path", filePath).Info("Now-playing track removed from library")
	c.stopLocked()
	return true
}

func (c *Controller) locateLocked(name string, index int) (*playlist.Sequence, playlist.Handle, error) {
	seq, ok := c.playlists.Get(name)
	if !ok {
		return nil, playlist.None, playlist.ErrPlaylistNotFound
	}
	h := seq.At(index)
	if h.IsNone() {
		return nil, playlist.None, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, seq.Len())
	}
	return seq, h, nil
}
