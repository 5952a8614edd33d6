package database

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cadenza/pkg/models"
)

func newTestDatabase(t *testing.T, path, session string) *Database {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	db, err := NewDatabase(path, session, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func TestPlayLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plays.db")
	db := newTestDatabase(t, path, "session-1")

	a := models.Track{Title: "A", Artist: "X", FilePath: "/m/a.mp3"}
	b := models.Track{Title: "B", Artist: "Y", FilePath: "/m/b.mp3"}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	plays := []struct {
		track models.Track
		at    time.Time
	}{
		{a, base},
		{b, base.Add(time.Minute)},
		{a, base.Add(2 * time.Minute)},
		{a, base.Add(3 * time.Minute)},
	}
	for _, p := range plays {
		if err := db.RecordPlay(p.track, p.at); err != nil {
			t.Fatalf("Failed to record play: %v", err)
		}
	}

	t.Run("RecentPlays", func(t *testing.T) {
		recent, err := db.RecentPlays(2)
		if err != nil {
			t.Fatalf("Failed to list plays: %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("Expected 2 plays, got %d", len(recent))
		}
		if recent[0].Title != "A" || !recent[0].PlayedAt.Equal(base.Add(3*time.Minute)) {
			t.Errorf("Expected newest play first, got %+v", recent[0])
		}
		if recent[0].SessionID != "session-1" {
			t.Errorf("Expected session id, got %q", recent[0].SessionID)
		}
	})

	t.Run("PlayCounts", func(t *testing.T) {
		counts, err := db.PlayCounts(10)
		if err != nil {
			t.Fatalf("Failed to count plays: %v", err)
		}
		if len(counts) != 2 {
			t.Fatalf("Expected 2 files, got %d", len(counts))
		}
		if counts[0].FilePath != a.FilePath || counts[0].Count != 3 {
			t.Errorf("Expected a.mp3 x3 first, got %+v", counts[0])
		}
		if counts[1].Count != 1 {
			t.Errorf("Expected b.mp3 x1, got %+v", counts[1])
		}
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close: %v", err)
		}
		db = newTestDatabase(t, path, "session-2")
		defer db.Close()

		total, err := db.TotalPlays()
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if total != 4 {
			t.Errorf("Expected 4 plays after reopen, got %d", total)
		}
	})
}
