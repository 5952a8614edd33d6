package models

// Track represents a playable audio item. FilePath is the unique key.
type Track struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	FilePath string `json:"filepath"`
	Upvotes  int    `json:"upvotes"`
}

// LibraryRecord is the persisted form of a library entry. Upvotes are
// playlist-scoped and never written to the library file.
type LibraryRecord struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	FilePath string `json:"filepath"`
}

// PlaylistRecord is the persisted form of a playlist entry.
type PlaylistRecord struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	FilePath string `json:"filepath"`
	Upvotes  int    `json:"upvotes"`
}

// ToLibraryRecord drops the playlist-scoped fields of a track.
func (t Track) ToLibraryRecord() LibraryRecord {
	return LibraryRecord{Title: t.Title, Artist: t.Artist, FilePath: t.FilePath}
}

// ToPlaylistRecord converts a track to its playlist file representation.
func (t Track) ToPlaylistRecord() PlaylistRecord {
	return PlaylistRecord{Title: t.Title, Artist: t.Artist, FilePath: t.FilePath, Upvotes: t.Upvotes}
}

// Track converts a library record back into a track with zero upvotes.
func (r LibraryRecord) Track() Track {
	return Track{Title: r.Title, Artist: r.Artist, FilePath: r.FilePath}
}

// Track converts a playlist record back into a track. Negative upvote
// counts from hand-edited files are clamped to zero.
func (r PlaylistRecord) Track() Track {
	upvotes := r.Upvotes
	if upvotes < 0 {
		upvotes = 0
	}
	return Track{Title: r.Title, Artist: r.Artist, FilePath: r.FilePath, Upvotes: upvotes}
}
