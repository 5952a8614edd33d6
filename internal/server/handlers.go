package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"cadenza/internal/store"
	"cadenza/pkg/models"
)

const defaultStatsLimit = 10

// handleGetLibrary returns library tracks, optionally filtered by ?search=
func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	query := sanitizeInput(r.URL.Query().Get("search"))
	if len(query) > 1000 {
		s.respondWithValidationError(w, r, ValidationError{
			Field:   "search",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		})
		return
	}

	tracks := s.session.Library().Search(query)
	s.respondJSON(w, http.StatusOK, lo.Ternary(tracks == nil, []models.Track{}, tracks))
}

// handleScanFolder adds the audio files under a folder to the library
func (s *Server) handleScanFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder string `json:"folder"`
	}
	if verr := decodeJSON(r, &req); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}
	if verr := validateFolder(req.Folder); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}

	added, err := s.session.ScanFolders(sanitizeInput(req.Folder))
	var persistErr *store.PersistenceError
	if errors.As(err, &persistErr) {
		s.respondWithFailure(w, r, err)
		return
	}
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Failed to scan folder", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"added":   len(added),
		"total":   s.session.Library().Len(),
	})
}

// handleDeleteFromLibrary removes tracks from the library by file path
func (s *Server) handleDeleteFromLibrary(w http.ResponseWriter, r *http.Request) {
	var req filePathsRequest
	if verr := decodeJSON(r, &req); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}
	if verr := validateFilePaths(req.FilePaths); verr != nil {
		s.respondWithValidationError(w, r, *verr)
		return
	}

	removed, err := s.session.DeleteFromLibrary(req.FilePaths)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": len(removed),
	})
}

// handleGetStats returns play counts from the play log
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	limit := defaultStatsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			s.respondWithValidationError(w, r, ValidationError{
				Field:   "limit",
				Message: "Limit must be an integer between 1 and 1000",
				Code:    "INVALID_LIMIT",
			})
			return
		}
		limit = n
	}

	stats, err := s.session.Stats(limit)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

// handleGetClients lists connected state feed clients
func (s *Server) handleGetClients(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Clients().List())
}
