package store

import (
	"os"

	"github.com/sirupsen/logrus"

	"cadenza/pkg/models"
)

// LibraryStore persists the library as a JSON array of
// {"title","artist","filepath"} objects.
type LibraryStore struct {
	path   string
	logger *logrus.Logger
}

// NewLibraryStore creates a store backed by path.
func NewLibraryStore(path string, logger *logrus.Logger) *LibraryStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LibraryStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *LibraryStore) Path() string {
	return s.path
}

// Load reads the library. Entries whose file no longer exists are dropped
// and logged. A missing store file yields an empty library.
func (s *LibraryStore) Load() ([]models.Track, error) {
	var records []models.LibraryRecord
	found, err := readJSON(s.path, &records)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.WithField("path", s.path).Debug("No library file, starting empty")
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(records))
	for _, r := range records {
		if _, err := os.Stat(r.FilePath); err != nil {
			s.logger.WithFields(logrus.Fields{
				"title":    r.Title,
				"filepath": r.FilePath,
			}).Warn("Dropping library entry for missing file")
			continue
		}
		tracks = append(tracks, r.Track())
	}
	return tracks, nil
}

// Save replaces the stored library with tracks.
func (s *LibraryStore) Save(tracks []models.Track) error {
	records := make([]models.LibraryRecord, len(tracks))
	for i, t := range tracks {
		records[i] = t.ToLibraryRecord()
	}
	return writeJSON(s.path, records)
}
