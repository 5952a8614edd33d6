package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cadenza/internal/config"
	"cadenza/internal/player"
	"cadenza/internal/session"
	"cadenza/pkg/models"
)

type stubEngine struct {
	mu   sync.Mutex
	busy bool
}

func (e *stubEngine) Load(path string) error {
	_, err := os.Stat(path)
	return err
}

func (e *stubEngine) Play(float64) { e.setBusy(true) }

func (e *stubEngine) Pause() {}

func (e *stubEngine) Resume() {}

func (e *stubEngine) Stop() { e.setBusy(false) }

func (e *stubEngine) Seek(float64) {}

func (e *stubEngine) Elapsed() float64 { return 0 }

func (e *stubEngine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

func (e *stubEngine) setBusy(busy bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = busy
}

type noDuration struct{}

func (noDuration) Duration(string) (float64, error) { return 0, errors.New("unknown") }

type testEnv struct {
	cfg     *config.Config
	session *session.Session
	handler http.Handler
}

func newTestEnv(t *testing.T, playLog bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Library.Path = filepath.Join(dir, "music")
	cfg.Library.WatchForChanges = false
	cfg.Storage.LibraryFile = filepath.Join(dir, "library.json")
	cfg.Storage.PlaylistsFile = filepath.Join(dir, "playlists.json")
	cfg.Database.Enabled = playLog
	cfg.Database.Path = filepath.Join(dir, "cadenza.db")
	cfg.Player.PollIntervalMillis = 3600 * 1000
	if err := os.MkdirAll(cfg.Library.Path, 0755); err != nil {
		t.Fatal(err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sess, err := session.New(session.Options{
		Config: cfg,
		Engine: &stubEngine{},
		Prober: noDuration{},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	return &testEnv{
		cfg:     cfg,
		session: sess,
		handler: NewServer(sess, logger).Handler(),
	}
}

// songs writes placeholder audio files into the library folder.
func (env *testEnv) songs(t *testing.T, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p := filepath.Join(env.cfg.Library.Path, n+".mp3")
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK)

	health := decode[HealthStatus](t, rec)
	if health.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", health.Status)
	}
	if health.Database != "disabled" {
		t.Errorf("Expected database disabled, got %s", health.Database)
	}
	if health.Player != "stopped" {
		t.Errorf("Expected stopped player, got %s", health.Player)
	}
}

func TestLibraryRoutes(t *testing.T) {
	env := newTestEnv(t, false)
	paths := env.songs(t, "alpha", "beta", "gamma")

	t.Run("Scan", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/library/scan", map[string]string{"folder": env.cfg.Library.Path})
		expectStatus(t, rec, http.StatusOK)
		body := decode[map[string]any](t, rec)
		if body["added"] != float64(3) {
			t.Errorf("Expected 3 added, got %v", body["added"])
		}
	})

	t.Run("ScanMissingFolder", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/library/scan", map[string]string{"folder": filepath.Join(env.cfg.Library.Path, "nope")})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("ScanRequiresFolder", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/library/scan", map[string]string{})
		expectStatus(t, rec, http.StatusBadRequest)
		result := decode[ValidationResult](t, rec)
		if len(result.Errors) != 1 || result.Errors[0].Code != "MISSING_FOLDER" {
			t.Errorf("Expected MISSING_FOLDER, got %+v", result.Errors)
		}
	})

	t.Run("Search", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/library?search=bet", nil)
		expectStatus(t, rec, http.StatusOK)
		tracks := decode[[]models.Track](t, rec)
		if len(tracks) != 1 || tracks[0].Title != "beta" {
			t.Errorf("Expected only beta, got %+v", tracks)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/library", map[string][]string{"filepaths": {paths[0]}})
		expectStatus(t, rec, http.StatusOK)

		rec = env.do(t, http.MethodGet, "/api/library", nil)
		if tracks := decode[[]models.Track](t, rec); len(tracks) != 2 {
			t.Errorf("Expected 2 tracks after delete, got %d", len(tracks))
		}
	})
}

func TestPlaylistRoutes(t *testing.T) {
	env := newTestEnv(t, false)
	paths := env.songs(t, "one", "two", "three")
	if _, err := env.session.ScanFolders(env.cfg.Library.Path); err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}

	t.Run("Create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/playlists", map[string]string{"name": "Road trip"})
		expectStatus(t, rec, http.StatusCreated)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/playlists", map[string]string{"name": "Road trip"})
		expectStatus(t, rec, http.StatusConflict)
		body := decode[map[string]any](t, rec)
		if body["success"] != false {
			t.Errorf("Expected success=false, got %v", body["success"])
		}
	})

	t.Run("CreateBlank", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/playlists", map[string]string{"name": "   "})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	base := "/api/playlists/" + url.PathEscape("Road trip")

	t.Run("AddTracks", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/tracks", map[string][]string{
			"filepaths": {paths[0], paths[1], paths[2], paths[0], "/not/in/library.mp3"},
		})
		expectStatus(t, rec, http.StatusOK)
		body := decode[map[string]any](t, rec)
		if body["added"] != float64(3) {
			t.Errorf("Expected 3 added, got %v", body["added"])
		}
		if missing, _ := body["missing"].([]any); len(missing) != 1 {
			t.Errorf("Expected 1 missing path, got %v", body["missing"])
		}
	})

	t.Run("AddToUnknownPlaylist", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/playlists/Nope/tracks", map[string][]string{"filepaths": {paths[0]}})
		expectStatus(t, rec, http.StatusNotFound)
	})

	t.Run("List", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/playlists", nil)
		expectStatus(t, rec, http.StatusOK)
		infos := decode[[]player.PlaylistInfo](t, rec)
		if len(infos) != 1 || infos[0].Name != "Road trip" || infos[0].TrackCount != 3 {
			t.Errorf("Unexpected playlists: %+v", infos)
		}
	})

	t.Run("SelectAndPlay", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodPost, base+"/select", nil), http.StatusOK)

		rec := env.do(t, http.MethodPost, "/api/player/play", nil)
		expectStatus(t, rec, http.StatusOK)
		state := decode[player.State](t, rec)
		if state.Status != player.StatusPlaying {
			t.Errorf("Expected playing, got %s", state.Status)
		}
		if state.Track == nil || state.Track.Title != "one" {
			t.Errorf("Expected track one, got %+v", state.Track)
		}
	})

	t.Run("QueueThenNext", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/tracks/2/queue", nil)
		expectStatus(t, rec, http.StatusOK)

		rec = env.do(t, http.MethodPost, "/api/player/next", nil)
		expectStatus(t, rec, http.StatusOK)
		state := decode[player.State](t, rec)
		if state.Track == nil || state.Track.Title != "three" || !state.FromQueue {
			t.Errorf("Expected queued track three, got %+v", state)
		}
	})

	t.Run("PlayAt", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/tracks/1/play", nil)
		expectStatus(t, rec, http.StatusOK)
		state := decode[player.State](t, rec)
		if state.Track == nil || state.Track.Title != "two" || state.CursorIndex != 1 {
			t.Errorf("Expected track two at index 1, got %+v", state)
		}
	})

	t.Run("Upvote", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/tracks/0/upvote", nil)
		expectStatus(t, rec, http.StatusOK)
		if track := decode[models.Track](t, rec); track.Upvotes != 1 {
			t.Errorf("Expected 1 upvote, got %d", track.Upvotes)
		}
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/tracks/9/upvote", nil)
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("InvalidIndex", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, base+"/tracks/first", nil)
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("Remove", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, base+"/tracks/0", nil)
		expectStatus(t, rec, http.StatusOK)

		rec = env.do(t, http.MethodGet, base+"/tracks", nil)
		tracks := decode[[]models.Track](t, rec)
		if len(tracks) != 2 || tracks[0].Title != "two" {
			t.Errorf("Expected [two three], got %+v", tracks)
		}
	})

	t.Run("Shuffle", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/shuffle", nil)
		expectStatus(t, rec, http.StatusOK)
		if tracks := decode[[]models.Track](t, rec); len(tracks) != 2 {
			t.Errorf("Expected 2 tracks after shuffle, got %d", len(tracks))
		}
	})

	t.Run("History", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/player/history", nil)
		expectStatus(t, rec, http.StatusOK)
		history := decode[[]models.Track](t, rec)
		titles := make([]string, len(history))
		for i, tr := range history {
			titles[i] = tr.Title
		}
		if got := strings.Join(titles, ","); got != "one,three,two" {
			t.Errorf("Expected history one,three,two, got %s", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodDelete, base, nil), http.StatusOK)
		expectStatus(t, env.do(t, http.MethodDelete, base, nil), http.StatusNotFound)
	})
}

func TestPlaybackErrorIsUnprocessable(t *testing.T) {
	env := newTestEnv(t, false)
	paths := env.songs(t, "gone")
	if _, err := env.session.ScanFolders(env.cfg.Library.Path); err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}
	if err := env.session.CreatePlaylist("Mix"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.session.AddToPlaylist("Mix", paths); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(paths[0]); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPost, "/api/playlists/Mix/tracks/0/play", nil)
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	state := decode[player.State](t, env.do(t, http.MethodGet, "/api/player/state", nil))
	if state.Status != player.StatusStopped {
		t.Errorf("Expected stopped after failed load, got %s", state.Status)
	}
}

func TestTransportRoutes(t *testing.T) {
	env := newTestEnv(t, false)

	t.Run("PlayWithNothingSelected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/player/play", nil)
		expectStatus(t, rec, http.StatusOK)
		if state := decode[player.State](t, rec); state.Status != player.StatusStopped {
			t.Errorf("Expected stopped, got %s", state.Status)
		}
	})

	t.Run("SeekRequiresPosition", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/player/seek", map[string]any{})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("SeekRejectsNegative", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/player/seek", map[string]any{"position": -3})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("Scrub", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodPost, "/api/player/scrub/begin", nil), http.StatusOK)
		rec := env.do(t, http.MethodPost, "/api/player/scrub", map[string]any{"position": 12})
		expectStatus(t, rec, http.StatusOK)
		if state := decode[player.State](t, rec); !state.Scrubbing {
			t.Error("Expected scrubbing to be reported")
		}
		rec = env.do(t, http.MethodPost, "/api/player/scrub/end", map[string]any{"position": 12})
		expectStatus(t, rec, http.StatusOK)
		if state := decode[player.State](t, rec); state.Scrubbing {
			t.Error("Expected scrubbing to end")
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/player/seek", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		expectStatus(t, rec, http.StatusBadRequest)
	})
}

func TestStats(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		env := newTestEnv(t, false)
		expectStatus(t, env.do(t, http.MethodGet, "/api/stats", nil), http.StatusNotFound)
	})

	t.Run("CountsPlays", func(t *testing.T) {
		env := newTestEnv(t, true)
		paths := env.songs(t, "a", "b")
		if _, err := env.session.ScanFolders(env.cfg.Library.Path); err != nil {
			t.Fatal(err)
		}
		if err := env.session.CreatePlaylist("Mix"); err != nil {
			t.Fatal(err)
		}
		if _, _, err := env.session.AddToPlaylist("Mix", paths); err != nil {
			t.Fatal(err)
		}
		expectStatus(t, env.do(t, http.MethodPost, "/api/playlists/Mix/tracks/0/play", nil), http.StatusOK)
		expectStatus(t, env.do(t, http.MethodPost, "/api/player/next", nil), http.StatusOK)

		rec := env.do(t, http.MethodGet, "/api/stats?limit=5", nil)
		expectStatus(t, rec, http.StatusOK)
		stats := decode[session.Stats](t, rec)
		if stats.TotalPlays != 2 {
			t.Errorf("Expected 2 plays, got %d", stats.TotalPlays)
		}

		expectStatus(t, env.do(t, http.MethodGet, "/api/stats?limit=zero", nil), http.StatusBadRequest)
	})
}

func TestPlayerFeed(t *testing.T) {
	env := newTestEnv(t, false)
	paths := env.songs(t, "live")
	if _, err := env.session.ScanFolders(env.cfg.Library.Path); err != nil {
		t.Fatal(err)
	}
	if err := env.session.CreatePlaylist("Mix"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.session.AddToPlaylist("Mix", paths); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/player/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial player.State
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("Failed to read initial state: %v", err)
	}
	if initial.Status != player.StatusStopped {
		t.Errorf("Expected initial stopped state, got %s", initial.Status)
	}

	rec := env.do(t, http.MethodGet, "/api/clients", nil)
	if clients := decode[[]session.Client](t, rec); len(clients) != 1 {
		t.Errorf("Expected 1 connected client, got %d", len(clients))
	}

	resp, err := http.Post(srv.URL+"/api/playlists/Mix/tracks/0/play", "application/json", nil)
	if err != nil {
		t.Fatalf("Failed to post play: %v", err)
	}
	resp.Body.Close()

	for {
		var state player.State
		if err := conn.ReadJSON(&state); err != nil {
			t.Fatalf("Expected a playing update, got error: %v", err)
		}
		if state.Status == player.StatusPlaying {
			if state.Track == nil || state.Track.Title != "live" {
				t.Errorf("Expected track live, got %+v", state.Track)
			}
			break
		}
	}
}

func TestPanicRecovery(t *testing.T) {
	env := newTestEnv(t, false)
	s := NewServer(env.session, logrus.New())
	s.logger.SetOutput(io.Discard)

	h := s.panicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("dangling cursor")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	expectStatus(t, rec, http.StatusInternalServerError)
}
