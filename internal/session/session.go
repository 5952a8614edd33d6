package session

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"cadenza/internal/config"
	"cadenza/internal/database"
	"cadenza/internal/library"
	"cadenza/internal/metadata"
	"cadenza/internal/player"
	"cadenza/internal/store"
	"cadenza/pkg/models"
)

// ErrPlayLogDisabled is returned by play log queries when no database is
// configured.
var ErrPlayLogDisabled = errors.New("play log is disabled")

// Options wires a Session. Engine is required; the rest default.
type Options struct {
	Config *config.Config
	Engine player.Engine
	Prober player.DurationProber
	Logger *logrus.Logger
	Rand   *rand.Rand
}

// Session owns everything one player instance needs: the library, the
// playback controller, the JSON stores and the optional play log and
// folder watcher. Mutating operations persist the affected store and
// return any persistence error.
type Session struct {
	ID        string
	startedAt time.Time

	cfg    *config.Config
	logger *logrus.Logger

	library   *library.Library
	player    *player.Controller
	libStore  *store.LibraryStore
	listStore *store.PlaylistStore
	db        *database.Database
	watcher   *library.Watcher
	clients   *ClientManager
	prober    player.DurationProber
	ownProber *metadata.Prober

	// serialises store writes so files reflect a consistent snapshot
	persistMu sync.Mutex
	closeOnce sync.Once
}

// New builds a session and loads the library and playlists from disk.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Engine == nil {
		return nil, errors.New("session requires an audio engine")
	}
	var ownProber *metadata.Prober
	prober := opts.Prober
	if prober == nil {
		ownProber = metadata.NewProber(logger)
		prober = ownProber
	}

	s := &Session{
		ID:        uuid.NewString(),
		startedAt: time.Now(),
		cfg:       cfg,
		logger:    logger,
		library:   library.NewLibrary(cfg.Library.SupportedFormats, logger),
		libStore:  store.NewLibraryStore(cfg.Storage.LibraryFile, logger),
		listStore: store.NewPlaylistStore(cfg.Storage.PlaylistsFile, logger),
		clients:   NewClientManager(),
		prober:    prober,
		ownProber: ownProber,
	}

	var recorder player.Recorder
	if cfg.Database.Enabled {
		db, err := database.NewDatabase(cfg.Database.Path, s.ID, logger)
		if err != nil {
			if ownProber != nil {
				ownProber.Close()
			}
			return nil, fmt.Errorf("failed to open play log: %w", err)
		}
		s.db = db
		recorder = db
	}

	s.player = player.NewController(opts.Engine, prober, player.Config{
		PollInterval: cfg.PollInterval(),
		HistorySize:  cfg.Player.HistorySize,
		Rand:         opts.Rand,
		Recorder:     recorder,
		Logger:       logger,
	})

	if err := s.load(); err != nil {
		s.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"session":   s.ID,
		"tracks":    s.library.Len(),
		"playlists": len(s.player.Playlists()),
	}).Info("Session ready")
	return s, nil
}

func (s *Session) load() error {
	tracks, err := s.libStore.Load()
	if err != nil {
		return err
	}
	s.library.AddAll(tracks)

	lists, err := s.listStore.Load()
	if err != nil {
		return err
	}
	for _, name := range lists.Names {
		if err := s.player.ImportPlaylist(name, lists.Lists[name]); err != nil {
			s.logger.WithError(err).WithField("playlist", name).Warn("Skipping stored playlist")
		}
	}
	return nil
}

// Start runs the startup scan and folder watcher when configured.
func (s *Session) Start() error {
	dir := s.cfg.Library.Path
	if _, err := os.Stat(dir); err != nil {
		s.logger.WithField("library_path", dir).Warn("Library folder not found, skipping scan and watch")
		return nil
	}

	if s.cfg.Library.ScanOnStartup {
		if _, err := s.ScanFolders(dir); err != nil {
			return err
		}
	}

	if s.cfg.Library.WatchForChanges {
		w, err := library.NewWatcher(s, s.cfg.Library.SupportedFormats, library.DefaultSettleDelay, s.logger)
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		if err := w.Watch(dir); err != nil {
			w.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		s.watcher = w
	}
	return nil
}

// Close stops playback and releases the watcher and play log.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			if werr := s.watcher.Close(); werr != nil {
				s.logger.WithError(werr).Warn("Failed to close file watcher")
			}
		}
		s.player.Close()
		if s.ownProber != nil {
			s.ownProber.Close()
		}
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

// Player exposes the playback controller.
func (s *Session) Player() *player.Controller { return s.player }

// Library exposes the track library.
func (s *Session) Library() *library.Library { return s.library }

// Clients exposes the connected client registry.
func (s *Session) Clients() *ClientManager { return s.clients }

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// ScanFolders adds every audio file under dirs to the library and saves it.
func (s *Session) ScanFolders(dirs ...string) ([]models.Track, error) {
	var added []models.Track
	for _, dir := range dirs {
		tracks, err := s.library.ScanFolder(dir)
		if err != nil {
			return added, err
		}
		added = append(added, tracks...)
	}
	if len(added) == 0 {
		return added, nil
	}
	return added, s.SaveLibrary()
}

// DeleteFromLibrary removes files from the library. Playback stops if one
// of them is playing; playlists keep their copies.
func (s *Session) DeleteFromLibrary(paths []string) ([]models.Track, error) {
	removed := s.library.Remove(paths...)
	forget, _ := s.prober.(interface{ Forget(string) })
	for _, t := range removed {
		s.player.ForgetTrack(t.FilePath)
		if forget != nil {
			forget.Forget(t.FilePath)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, s.SaveLibrary()
}

// CreatePlaylist adds an empty playlist and saves playlists.
func (s *Session) CreatePlaylist(name string) error {
	if err := s.player.CreatePlaylist(name); err != nil {
		return err
	}
	return s.SavePlaylists()
}

// DeletePlaylist removes a playlist and saves playlists.
func (s *Session) DeletePlaylist(name string) error {
	if err := s.player.DeletePlaylist(name); err != nil {
		return err
	}
	return s.SavePlaylists()
}

// AddToPlaylist appends library tracks, identified by path, to name. Paths
// unknown to the library are returned as missing.
func (s *Session) AddToPlaylist(name string, paths []string) (added int, missing []string, err error) {
	tracks, missing := s.library.Lookup(paths)
	added, err = s.player.AddTracks(name, tracks)
	if err != nil {
		return 0, missing, err
	}
	if added > 0 {
		err = s.SavePlaylists()
	}
	return added, missing, err
}

// RemoveFromPlaylist removes the track at index and saves playlists.
func (s *Session) RemoveFromPlaylist(name string, index int) (models.Track, error) {
	t, err := s.player.RemoveAt(name, index)
	if err != nil {
		return t, err
	}
	return t, s.SavePlaylists()
}

// ShufflePlaylist shuffles name and saves playlists.
func (s *Session) ShufflePlaylist(name string) error {
	if err := s.player.Shuffle(name); err != nil {
		return err
	}
	return s.SavePlaylists()
}

// Upvote increments the upvotes of the track at index and saves playlists.
func (s *Session) Upvote(name string, index int) (models.Track, error) {
	t, err := s.player.Upvote(name, index)
	if err != nil {
		return t, err
	}
	return t, s.SavePlaylists()
}

// SaveLibrary writes the library store.
func (s *Session) SaveLibrary() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.libStore.Save(s.library.Tracks())
}

// SavePlaylists writes the playlist store.
func (s *Session) SavePlaylists() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	names, lists := s.player.ExportPlaylists()
	return s.listStore.Save(store.Playlists{Names: names, Lists: lists})
}

// FileAdded handles a new audio file seen by the watcher.
func (s *Session) FileAdded(path string) {
	if !s.library.Add(metadata.TrackFromPath(path)) {
		return
	}
	if err := s.SaveLibrary(); err != nil {
		s.logger.WithError(err).Error("Failed to save library")
	}
}

// FileRemoved handles an audio file deleted from a watched folder.
func (s *Session) FileRemoved(path string) {
	if _, err := s.DeleteFromLibrary([]string{path}); err != nil {
		s.logger.WithError(err).Error("Failed to save library")
	}
}

// Stats summarises the play log.
type Stats struct {
	SessionID  string             `json:"sessionId"`
	TotalPlays int                `json:"totalPlays"`
	TopTracks  []models.PlayCount `json:"topTracks"`
	Recent     []models.Play      `json:"recent"`
	Library    int                `json:"libraryTracks"`
	Playlists  int                `json:"playlists"`
	Clients    int                `json:"clients"`
	Uptime     string             `json:"uptime,omitempty"`
}

// Stats reads play counts and recent plays from the play log.
func (s *Session) Stats(limit int) (Stats, error) {
	if s.db == nil {
		return Stats{}, ErrPlayLogDisabled
	}
	total, err := s.db.TotalPlays()
	if err != nil {
		return Stats{}, err
	}
	top, err := s.db.PlayCounts(limit)
	if err != nil {
		return Stats{}, err
	}
	recent, err := s.db.RecentPlays(limit)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		SessionID:  s.ID,
		TotalPlays: total,
		TopTracks:  lo.Ternary(top == nil, []models.PlayCount{}, top),
		Recent:     lo.Ternary(recent == nil, []models.Play{}, recent),
		Library:    s.library.Len(),
		Playlists:  len(s.player.Playlists()),
		Clients:    s.clients.Count(),
		Uptime:     since(s.startedAt),
	}, nil
}

// CheckPlayLog reports whether the play log is reachable. It returns
// ErrPlayLogDisabled when no database is configured.
func (s *Session) CheckPlayLog() error {
	if s.db == nil {
		return ErrPlayLogDisabled
	}
	return s.db.Ping()
}

// CheckStorage verifies that the store directories exist.
func (s *Session) CheckStorage() error {
	for _, path := range []string{s.libStore.Path(), s.listStore.Path()} {
		dir := filepath.Dir(path)
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("storage directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage path %s is not a directory", dir)
		}
	}
	return nil
}

// since formats an uptime for display.
func since(t time.Time) string {
	return time.Since(t).Truncate(time.Second).String()
}
