package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"cadenza/internal/metadata"
	"cadenza/pkg/models"
)

// Library is the ordered set of known audio files, keyed by file path.
type Library struct {
	mu        sync.RWMutex
	tracks    []models.Track
	index     map[string]int
	supported []string
	logger    *logrus.Logger
}

// NewLibrary creates an empty library accepting the given extensions.
func NewLibrary(supported []string, logger *logrus.Logger) *Library {
	if len(supported) == 0 {
		supported = metadata.DefaultSupportedFormats
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Library{
		index:     make(map[string]int),
		supported: supported,
		logger:    logger,
	}
}

// Add appends track unless its file path is already known.
func (l *Library) Add(track models.Track) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addLocked(track)
}

func (l *Library) addLocked(track models.Track) bool {
	if _, ok := l.index[track.FilePath]; ok {
		return false
	}
	track.Upvotes = 0
	l.index[track.FilePath] = len(l.tracks)
	l.tracks = append(l.tracks, track)
	return true
}

// AddAll adds tracks in order and returns the ones that were new.
func (l *Library) AddAll(tracks []models.Track) []models.Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.Filter(tracks, func(t models.Track, _ int) bool {
		return l.addLocked(t)
	})
}

// Remove drops the given paths and returns the tracks that were removed.
func (l *Library) Remove(paths ...string) []models.Track {
	l.mu.Lock()
	defer l.mu.Unlock()

	drop := lo.SliceToMap(paths, func(p string) (string, struct{}) { return p, struct{}{} })
	var removed []models.Track
	kept := l.tracks[:0]
	for _, t := range l.tracks {
		if _, ok := drop[t.FilePath]; ok {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	l.tracks = kept
	l.reindexLocked()
	return removed
}

func (l *Library) reindexLocked() {
	l.index = make(map[string]int, len(l.tracks))
	for i, t := range l.tracks {
		l.index[t.FilePath] = i
	}
}

// Tracks returns the library in insertion order.
func (l *Library) Tracks() []models.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Get looks a track up by file path.
func (l *Library) Get(path string) (models.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[path]
	if !ok {
		return models.Track{}, false
	}
	return l.tracks[i], true
}

// Lookup resolves paths to library tracks, returning the unknown paths
// separately.
func (l *Library) Lookup(paths []string) (found []models.Track, missing []string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range lo.Uniq(paths) {
		if i, ok := l.index[p]; ok {
			found = append(found, l.tracks[i])
		} else {
			missing = append(missing, p)
		}
	}
	return found, missing
}

// Search returns tracks whose title or artist contains query, ignoring case.
func (l *Library) Search(query string) []models.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	all := l.Tracks()
	if q == "" {
		return all
	}
	return lo.Filter(all, func(t models.Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q)
	})
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// IsAudioFile reports whether path has a supported extension.
func (l *Library) IsAudioFile(path string) bool {
	return metadata.IsAudioFile(path, l.supported)
}

// ScanFolder walks dir recursively and adds every supported audio file.
// Hidden files and directories are skipped. It returns the newly added
// tracks.
func (l *Library) ScanFolder(dir string) ([]models.Track, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var found []models.Track
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"path":  path,
				"error": err,
			}).Warn("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && l.IsAudioFile(path) {
			found = append(found, metadata.TrackFromPath(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	added := l.AddAll(found)
	l.logger.WithFields(logrus.Fields{
		"folder":  root,
		"found":   len(found),
		"added":   len(added),
		"skipped": len(found) - len(added),
	}).Info("Library scan complete")
	return added, nil
}
