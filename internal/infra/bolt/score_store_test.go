package bolt

import (
	"path/filepath"
	"testing"
)

func TestHighScoreDefaultsToZero(t *testing.T) {
	store := openTestStore(t)

	score, err := store.HighScore("world-geo")
	if err != nil {
		t.Fatalf("high score: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected 0 for unset category, got %d", score)
	}
}

func TestMaybePersistOnlyOnImprovement(t *testing.T) {
	store := openTestStore(t)

	improved, err := store.MaybePersist("world-geo", 3)
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if !improved {
		t.Fatalf("expected first score to persist")
	}

	if improved, _ = store.MaybePersist("world-geo", 2); improved {
		t.Fatalf("lower score must not persist")
	}
	if improved, _ = store.MaybePersist("world-geo", 3); improved {
		t.Fatalf("equal score must not persist")
	}
	if improved, _ = store.MaybePersist("world-geo", 5); !improved {
		t.Fatalf("higher score must persist")
	}

	score, err := store.HighScore("world-geo")
	if err != nil {
		t.Fatalf("high score: %v", err)
	}
	if score != 5 {
		t.Fatalf("expected 5, got %d", score)
	}
}

func TestScoresAreIndependentPerCategory(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.MaybePersist("world-geo", 4); err != nil {
		t.Fatalf("persist: %v", err)
	}
	score, err := store.HighScore("space")
	if err != nil {
		t.Fatalf("high score: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected other category untouched, got %d", score)
	}
}

func TestScoresSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.MaybePersist("world-geo", 7); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	score, err := reopened.HighScore("world-geo")
	if err != nil {
		t.Fatalf("high score: %v", err)
	}
	if score != 7 {
		t.Fatalf("expected persisted 7, got %d", score)
	}
}

func openTestStore(t *testing.T) *ScoreStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("open score store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
