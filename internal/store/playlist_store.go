package store

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"cadenza/pkg/models"
)

// Playlists is the stored form of all playlists with their order.
type Playlists struct {
	Names []string
	Lists map[string][]models.Track
}

// PlaylistStore persists playlists as a JSON object mapping each name to
// an ordered array of {"title","artist","filepath","upvotes"} objects.
// Entries are kept even when their file is missing.
type PlaylistStore struct {
	path   string
	logger *logrus.Logger
}

// NewPlaylistStore creates a store backed by path.
func NewPlaylistStore(path string, logger *logrus.Logger) *PlaylistStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PlaylistStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *PlaylistStore) Path() string {
	return s.path
}

// Load reads every playlist, preserving the key order of the file.
func (s *PlaylistStore) Load() (Playlists, error) {
	out := Playlists{Lists: make(map[string][]models.Track)}

	var raw orderedPlaylists
	found, err := readJSON(s.path, &raw)
	if err != nil || !found {
		return out, err
	}

	for _, name := range raw.names {
		records := raw.lists[name]
		tracks := make([]models.Track, len(records))
		for i, r := range records {
			tracks[i] = r.Track()
		}
		out.Names = append(out.Names, name)
		out.Lists[name] = tracks
	}
	s.logger.WithFields(logrus.Fields{
		"path":      s.path,
		"playlists": len(out.Names),
	}).Debug("Loaded playlists")
	return out, nil
}

// Save replaces the stored playlists. Names gives the key order.
func (s *PlaylistStore) Save(p Playlists) error {
	raw := orderedPlaylists{lists: make(map[string][]models.PlaylistRecord, len(p.Names))}
	for _, name := range p.Names {
		tracks := p.Lists[name]
		records := make([]models.PlaylistRecord, len(tracks))
		for i, t := range tracks {
			records[i] = t.ToPlaylistRecord()
		}
		raw.names = append(raw.names, name)
		raw.lists[name] = records
	}
	return writeJSON(s.path, raw)
}

// orderedPlaylists is a JSON object whose key order is kept.
type orderedPlaylists struct {
	names []string
	lists map[string][]models.PlaylistRecord
}

func (o orderedPlaylists) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range o.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		records := o.lists[name]
		if records == nil {
			records = []models.PlaylistRecord{}
		}
		val, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedPlaylists) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("playlists must be a JSON object")
	}

	o.lists = make(map[string][]models.PlaylistRecord)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errors.New("playlist name must be a string")
		}
		var records []models.PlaylistRecord
		if err := dec.Decode(&records); err != nil {
			return err
		}
		if _, dup := o.lists[name]; !dup {
			o.names = append(o.names, name)
		}
		o.lists[name] = records
	}
	_, err = dec.Token()
	return err
}
