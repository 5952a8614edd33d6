package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"cadenza/internal/player"
	"cadenza/internal/playlist"
	"cadenza/internal/session"
	"cadenza/internal/store"
)

// maxBodyBytes bounds request bodies; every request is a small JSON object.
const maxBodyBytes = 1 << 20

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON writes v as JSON with the given status code
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// respondWithValidationError sends a structured validation error response
func (s *Server) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors ...ValidationError) {
	s.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	s.respondJSON(w, http.StatusBadRequest, ValidationResult{
		Valid:  false,
		Errors: errors,
	})
}

// respondWithError sends a structured error response
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	s.respondJSON(w, statusCode, map[string]any{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// respondWithFailure maps an operation error onto a status code
func (s *Server) respondWithFailure(w http.ResponseWriter, r *http.Request, err error) {
	var persistErr *store.PersistenceError
	switch {
	case errors.Is(err, player.ErrLoad):
		s.respondWithError(w, r, http.StatusUnprocessableEntity, err.Error(), err)
	case errors.As(err, &persistErr):
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to save changes", err)
	case errors.Is(err, playlist.ErrPlaylistNotFound):
		s.respondWithError(w, r, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, playlist.ErrPlaylistExists):
		s.respondWithError(w, r, http.StatusConflict, err.Error(), err)
	case errors.Is(err, playlist.ErrEmptyName), errors.Is(err, player.ErrIndexOutOfRange):
		s.respondWithError(w, r, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, session.ErrPlayLogDisabled):
		s.respondWithError(w, r, http.StatusNotFound, err.Error(), err)
	default:
		s.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) *ValidationError {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &ValidationError{
			Field:   "body",
			Message: "Request body must be valid JSON",
			Code:    "INVALID_JSON",
		}
	}
	return nil
}

// validateIndex parses a playlist index from the URL
func validateIndex(raw string) (int, *ValidationError) {
	if raw == "" {
		return 0, &ValidationError{
			Field:   "index",
			Message: "Track index is required",
			Code:    "MISSING_INDEX",
		}
	}

	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{
			Field:   "index",
			Message: "Track index must be a valid integer",
			Code:    "INVALID_INDEX_FORMAT",
		}
	}

	if index < 0 {
		return 0, &ValidationError{
			Field:   "index",
			Message: "Track index cannot be negative",
			Code:    "INVALID_INDEX_VALUE",
		}
	}

	return index, nil
}

// validatePosition checks a position in seconds
func validatePosition(position *float64) *ValidationError {
	if position == nil {
		return &ValidationError{
			Field:   "position",
			Message: "Position is required",
			Code:    "MISSING_POSITION",
		}
	}
	if math.IsNaN(*position) || math.IsInf(*position, 0) || *position < 0 ||
		*position > player.MaxPosition {
		return &ValidationError{
			Field:   "position",
			Message: "Position must be a number of seconds between 0 and 2147483647",
			Code:    "INVALID_POSITION",
		}
	}
	return nil
}

// validatePlaylistName validates playlist name
func validatePlaylistName(name string) *ValidationError {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name is required",
			Code:    "MISSING_PLAYLIST_NAME",
		}
	}

	if len(name) > 255 {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name too long (max 255 characters)",
			Code:    "PLAYLIST_NAME_TOO_LONG",
		}
	}

	if strings.ContainsAny(name, "\x00\n\r") {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name contains invalid characters",
			Code:    "INVALID_PLAYLIST_NAME_CHARACTERS",
		}
	}

	return nil
}

// validateFilePaths checks a list of file paths sent by a client
func validateFilePaths(paths []string) *ValidationError {
	if len(paths) == 0 {
		return &ValidationError{
			Field:   "filepaths",
			Message: "At least one file path is required",
			Code:    "MISSING_FILEPATHS",
		}
	}

	for i, p := range paths {
		if strings.TrimSpace(p) == "" || strings.Contains(p, "\x00") {
			return &ValidationError{
				Field:   "filepaths",
				Message: fmt.Sprintf("File path %d is invalid", i),
				Code:    "INVALID_FILEPATH",
			}
		}
	}

	return nil
}

// validateFolder checks a folder path sent by a client
func validateFolder(folder string) *ValidationError {
	if folder == "" {
		return &ValidationError{
			Field:   "folder",
			Message: "Folder is required",
			Code:    "MISSING_FOLDER",
		}
	}

	if strings.Contains(folder, "\x00") {
		return &ValidationError{
			Field:   "folder",
			Message: "Folder contains invalid characters",
			Code:    "INVALID_FOLDER_CHARACTERS",
		}
	}

	return nil
}

// sanitizeInput sanitizes user input to prevent injection attacks
func sanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
