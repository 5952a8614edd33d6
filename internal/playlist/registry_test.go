package playlist

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"Road trip", "Focus", "Gym"} {
		if _, err := reg.Create(name); err != nil {
			t.Fatalf("Failed to create %q: %v", name, err)
		}
	}

	t.Run("RejectsDuplicates", func(t *testing.T) {
		if _, err := reg.Create("Focus"); !errors.Is(err, ErrPlaylistExists) {
			t.Errorf("Expected ErrPlaylistExists, got %v", err)
		}
	})

	t.Run("RejectsBlankNames", func(t *testing.T) {
		if _, err := reg.Create("   "); !errors.Is(err, ErrEmptyName) {
			t.Errorf("Expected ErrEmptyName, got %v", err)
		}
	})

	t.Run("KeepsCreationOrder", func(t *testing.T) {
		names := reg.Names()
		want := []string{"Road trip", "Focus", "Gym"}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("Expected %v, got %v", want, names)
				break
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if !reg.Delete("Focus") {
			t.Fatal("Expected Focus to be deleted")
		}
		if reg.Delete("Focus") {
			t.Error("Expected second delete to report false")
		}
		if _, ok := reg.Get("Focus"); ok {
			t.Error("Expected Focus to be gone")
		}
		if reg.Len() != 2 {
			t.Errorf("Expected 2 playlists, got %d", reg.Len())
		}
	})
}
