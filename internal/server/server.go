package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"cadenza/internal/config"
	"cadenza/internal/session"
)

// Server is the local HTTP control surface for a player session
type Server struct {
	session *session.Session
	config  *config.Config
	logger  *logrus.Logger
	router  chi.Router
}

// NewServer creates a control surface for sess
func NewServer(sess *session.Session, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		session: sess,
		config:  sess.Config(),
		logger:  logger,
	}
	s.router = s.setupRoutes()
	return s
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.panicRecoveryMiddleware)
	r.Use(s.requestLoggingMiddleware)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleGetConfig)
		r.Get("/stats", s.handleGetStats)
		r.Get("/clients", s.handleGetClients)

		r.Route("/player", func(r chi.Router) {
			r.Get("/state", s.handleGetPlayerState)
			r.Get("/history", s.handleGetHistory)
			r.Get("/queue", s.handleGetQueue)
			r.Get("/ws", s.handlePlayerFeed)

			r.Post("/play", s.handlePlay)
			r.Post("/toggle", s.handleToggle)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/stop", s.handleStop)
			r.Post("/next", s.handleNext)
			r.Post("/previous", s.handlePrevious)
			r.Post("/seek", s.handleSeek)
			r.Post("/scrub/begin", s.handleBeginScrub)
			r.Post("/scrub", s.handleScrub)
			r.Post("/scrub/end", s.handleEndScrub)
		})

		r.Route("/library", func(r chi.Router) {
			r.Get("/", s.handleGetLibrary)
			r.Delete("/", s.handleDeleteFromLibrary)
			r.Post("/scan", s.handleScanFolder)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handleGetPlaylists)
			r.Post("/", s.handleCreatePlaylist)
			r.Route("/{name}", func(r chi.Router) {
				r.Delete("/", s.handleDeletePlaylist)
				r.Post("/select", s.handleSelectPlaylist)
				r.Post("/shuffle", s.handleShufflePlaylist)
				r.Get("/tracks", s.handleGetPlaylistTracks)
				r.Post("/tracks", s.handleAddTracksToPlaylist)
				r.Delete("/tracks/{index}", s.handleRemoveTrackFromPlaylist)
				r.Post("/tracks/{index}/upvote", s.handleUpvoteTrack)
				r.Post("/tracks/{index}/queue", s.handleQueueTrack)
				r.Post("/tracks/{index}/play", s.handlePlayTrack)
			})
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.config.GetAddress(),
		Handler:     s.Handler(),
		ReadTimeout: time.Duration(s.config.Server.ReadTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", fmt.Sprintf("http://%s", srv.Addr)).Info("Control surface listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down control surface...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Control surface shutdown complete")
	return nil
}
