package server

import (
	"net/http"
)

// ConfigResponse represents the configuration a client may read
type ConfigResponse struct {
	Library LibraryConfigResponse `json:"library"`
	Player  PlayerConfigResponse  `json:"player"`
	PlayLog bool                  `json:"playLog"`
}

// LibraryConfigResponse represents library settings exposed to clients
type LibraryConfigResponse struct {
	Path             string   `json:"path"`
	SupportedFormats []string `json:"supportedFormats"`
	WatchForChanges  bool     `json:"watchForChanges"`
}

// PlayerConfigResponse represents playback settings exposed to clients
type PlayerConfigResponse struct {
	PollIntervalMillis int `json:"pollIntervalMs"`
	HistorySize        int `json:"historySize"`
}

// handleGetConfig returns public configuration settings
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, ConfigResponse{
		Library: LibraryConfigResponse{
			Path:             s.config.Library.Path,
			SupportedFormats: s.config.Library.SupportedFormats,
			WatchForChanges:  s.config.Library.WatchForChanges,
		},
		Player: PlayerConfigResponse{
			PollIntervalMillis: s.config.Player.PollIntervalMillis,
			HistorySize:        s.config.Player.HistorySize,
		},
		PlayLog: s.config.Database.Enabled,
	})
}
