package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"cadenza/pkg/models"
)

// filePathsRequest names library tracks by file path
type filePathsRequest struct {
	FilePaths []string `json:"filepaths"`
}

// playlistName reads and validates the {name} URL parameter
func (s *Server) playlistName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	// chi routes on RawPath when it is set, leaving parameters escaped
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			s.respondWithValidationError(w, r, ValidationError{
				Field:   "name",
				Message: "Playlist name is not properly escaped",
				Code:    "INVALID_PLAYLIST_NAME_ENCODING",
			})
			return "", false
		}
		name = unescaped
	}
	if verr := validatePlaylistName(name); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return "", false
	}
	return name, true
}

// playlistTrack reads the {name} and {index} URL parameters
func (s *Server) playlistTrack(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	name, ok := s.playlistName(w, r)
	if !ok {
		return "", 0, false
	}
	index, verr := validateIndex(chi.URLParam(r, "index"))
	if verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return "", 0, false
	}
	return name, index, true
}

// handleGetPlaylists returns all playlists with track counts.
func (s *Server) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Player().Playlists())
}

// handleCreatePlaylist creates a new empty playlist (POST json name).
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if verr := decodeJSON(r, &req); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}

	name := sanitizeInput(req.Name)
	if verr := validatePlaylistName(name); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}

	if err := s.session.CreatePlaylist(name); err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"name":    name,
	})
}

// handleDeletePlaylist removes a playlist.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	name, ok := s.playlistName(w, r)
	if !ok {
		return
	}
	if err := s.session.DeletePlaylist(name); err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleSelectPlaylist makes a playlist the source for Play and Next.
func (s *Server) handleSelectPlaylist(w http.ResponseWriter, r *http.Request) {
	name, ok := s.playlistName(w, r)
	if !ok {
		return
	}
	s.respondWithState(w, r, s.session.Player().SelectPlaylist(name))
}

// handleShufflePlaylist reorders a playlist at random.
func (s *Server) handleShufflePlaylist(w http.ResponseWriter, r *http.Request) {
	name, ok := s.playlistName(w, r)
	if !ok {
		return
	}
	if err := s.session.ShufflePlaylist(name); err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.handleGetPlaylistTracks(w, r)
}

// handleGetPlaylistTracks returns the tracks of a playlist in order.
func (s *Server) handleGetPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	name, ok := s.playlistName(w, r)
	if !ok {
		return
	}
	tracks, err := s.session.Player().PlaylistTracks(name)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lo.Ternary(tracks == nil, []models.Track{}, tracks))
}

// handleAddTracksToPlaylist appends library tracks to a playlist.
func (s *Server) handleAddTracksToPlaylist(w http.ResponseWriter, r *http.Request) {
	name, ok := s.playlistName(w, r)
	if !ok {
		return
	}

	var req filePathsRequest
	if verr := decodeJSON(r, &req); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}
	if verr := validateFilePaths(req.FilePaths); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}

	added, missing, err := s.session.AddToPlaylist(name, req.FilePaths)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"added":   added,
		"skipped": len(lo.Uniq(req.FilePaths)) - added - len(missing),
		"missing": lo.Ternary(missing == nil, []string{}, missing),
	})
}

// handleRemoveTrackFromPlaylist removes the track at an index.
func (s *Server) handleRemoveTrackFromPlaylist(w http.ResponseWriter, r *http.Request) {
	name, index, ok := s.playlistTrack(w, r)
	if !ok {
		return
	}
	track, err := s.session.RemoveFromPlaylist(name, index)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": track,
	})
}

// handleUpvoteTrack increments the upvotes of the track at an index.
func (s *Server) handleUpvoteTrack(w http.ResponseWriter, r *http.Request) {
	name, index, ok := s.playlistTrack(w, r)
	if !ok {
		return
	}
	track, err := s.session.Upvote(name, index)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, track)
}

// handleQueueTrack adds the track at an index to the play-next queue.
func (s *Server) handleQueueTrack(w http.ResponseWriter, r *http.Request) {
	name, index, ok := s.playlistTrack(w, r)
	if !ok {
		return
	}
	track, err := s.session.Player().QueueNext(name, index)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"queued":  track,
		"queue":   s.session.Player().Queue(),
	})
}

// handlePlayTrack starts playback at an index.
func (s *Server) handlePlayTrack(w http.ResponseWriter, r *http.Request) {
	name, index, ok := s.playlistTrack(w, r)
	if !ok {
		return
	}
	s.respondWithState(w, r, s.session.Player().PlayAt(name, index))
}
