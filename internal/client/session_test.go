package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/client"
	"trivia-service/internal/domain"
)

type fakeAPI struct {
	mu        sync.Mutex
	game      domain.NewGame
	gameErr   error
	questions map[int]domain.PublicQuestion
	answers   map[int]string
	checkGate chan struct{} // when set, Check blocks until closed
}

func (f *fakeAPI) Categories(_ context.Context) ([]domain.CategorySummary, error) {
	return nil, nil
}

func (f *fakeAPI) NewGame(_ context.Context, _ string, _ bool) (domain.NewGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.game, f.gameErr
}

func (f *fakeAPI) Question(_ context.Context, _ string, id int) (domain.PublicQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return domain.PublicQuestion{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (f *fakeAPI) Check(_ context.Context, _ string, id int, answer string) (bool, error) {
	f.mu.Lock()
	gate := f.checkGate
	want, ok := f.answers[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if !ok {
		return false, domain.ErrQuestionNotFound
	}
	return want == answer, nil
}

type memScores struct {
	mu     sync.Mutex
	scores map[string]int
}

func newMemScores() *memScores {
	return &memScores{scores: make(map[string]int)}
}

func (s *memScores) HighScore(category string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[category], nil
}

func (s *memScores) MaybePersist(category string, score int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if score <= s.scores[category] {
		return false, nil
	}
	s.scores[category] = score
	return true, nil
}

func waitFor(t *testing.T, ch <-chan client.Snapshot, what string, cond func(client.Snapshot) bool) client.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("snapshot channel closed waiting for %s", what)
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func batchGame(questions ...domain.PublicQuestion) domain.NewGame {
	return domain.NewGame{Mode: domain.ModeBatch, Questions: questions}
}

func TestBatchSessionAllCorrectEndsWon(t *testing.T) {
	api := &fakeAPI{
		game: batchGame(
			domain.PublicQuestion{ID: 1, Text: "one", Options: []string{"a", "b"}},
			domain.PublicQuestion{ID: 2, Text: "two", Options: []string{"c", "d"}},
		),
		answers: map[int]string{1: "a", 2: "c"},
	}
	scores := newMemScores()
	machine := client.NewMachineWithDelay(api, scores, 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")

	snap := waitFor(t, snapshots, "first question", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})
	if snap.Question.ID != 1 || snap.Total != 2 {
		t.Fatalf("unexpected first snapshot: %+v", snap)
	}

	if err := machine.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap = waitFor(t, snapshots, "second question", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying && s.Question.ID == 2
	})
	if snap.Score != 1 {
		t.Fatalf("expected score 1 after one correct answer, got %d", snap.Score)
	}

	if err := machine.Submit(context.Background(), "c"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap = waitFor(t, snapshots, "won", func(s client.Snapshot) bool {
		return s.State == client.StateWon
	})
	if snap.Score != 2 {
		t.Fatalf("expected final score 2, got %d", snap.Score)
	}
	if best, _ := scores.HighScore("world-geo"); best != 2 {
		t.Fatalf("expected high score persisted as 2, got %d", best)
	}
}

func TestSequenceSessionFollowsOrder(t *testing.T) {
	api := &fakeAPI{
		game: domain.NewGame{Mode: domain.ModeSequence, Order: []int{2, 1}},
		questions: map[int]domain.PublicQuestion{
			1: {ID: 1, Text: "one", Options: []string{"a"}},
			2: {ID: 2, Text: "two", Options: []string{"c"}},
		},
		answers: map[int]string{1: "a", 2: "c"},
	}
	machine := client.NewMachineWithDelay(api, newMemScores(), 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")

	snap := waitFor(t, snapshots, "first question", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})
	if snap.Question.ID != 2 {
		t.Fatalf("expected question 2 first per order, got %d", snap.Question.ID)
	}

	if err := machine.Submit(context.Background(), "c"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitFor(t, snapshots, "second question", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying && s.Question.ID == 1
	})
	if err := machine.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap = waitFor(t, snapshots, "won", func(s client.Snapshot) bool {
		return s.State == client.StateWon
	})
	if snap.Score != 2 {
		t.Fatalf("expected score 2, got %d", snap.Score)
	}
}

func TestIncorrectAnswerLosesImmediately(t *testing.T) {
	api := &fakeAPI{
		game:    batchGame(domain.PublicQuestion{ID: 1, Text: "one", Options: []string{"a", "b"}}),
		answers: map[int]string{1: "a"},
	}
	scores := newMemScores()
	machine := client.NewMachineWithDelay(api, scores, 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")
	waitFor(t, snapshots, "playing", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})

	if err := machine.Submit(context.Background(), "b"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := waitFor(t, snapshots, "lost", func(s client.Snapshot) bool {
		return s.State == client.StateLost
	})
	if snap.Score != 0 {
		t.Fatalf("expected no score on wrong answer, got %d", snap.Score)
	}
	if snap.Feedback != "Incorrect!" {
		t.Fatalf("expected incorrect feedback, got %q", snap.Feedback)
	}
	if best, _ := scores.HighScore("world-geo"); best != 0 {
		t.Fatalf("expected no high score persisted, got %d", best)
	}

	if err := machine.Submit(context.Background(), "a"); !errors.Is(err, client.ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying after loss, got %v", err)
	}
}

func TestEmptyNewGameFallsBackToFirstID(t *testing.T) {
	api := &fakeAPI{
		game: domain.NewGame{Mode: domain.ModeSequence, Order: []int{}},
		questions: map[int]domain.PublicQuestion{
			1: {ID: 1, Text: "one", Options: []string{"a"}},
		},
		answers: map[int]string{1: "a"},
	}
	machine := client.NewMachineWithDelay(api, newMemScores(), 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")

	snap := waitFor(t, snapshots, "fallback question", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})
	if snap.Question.ID != 1 {
		t.Fatalf("expected fallback to id 1, got %d", snap.Question.ID)
	}

	// The run has no known end: the next id 404s and the session is lost
	// with the banked score.
	if err := machine.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap = waitFor(t, snapshots, "lost at end of fallback run", func(s client.Snapshot) bool {
		return s.State == client.StateLost
	})
	if snap.Score != 1 {
		t.Fatalf("expected score 1 kept, got %d", snap.Score)
	}
}

func TestFallbackMissingFirstQuestionLoses(t *testing.T) {
	api := &fakeAPI{
		gameErr:   errors.New("boom"),
		questions: map[int]domain.PublicQuestion{},
	}
	machine := client.NewMachineWithDelay(api, newMemScores(), 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "empty-cat")
	waitFor(t, snapshots, "lost", func(s client.Snapshot) bool {
		return s.State == client.StateLost
	})
}

func TestGoHomeDiscardsInFlightCheck(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		game:      batchGame(domain.PublicQuestion{ID: 1, Text: "one", Options: []string{"a"}}),
		answers:   map[int]string{1: "a"},
		checkGate: gate,
	}
	machine := client.NewMachineWithDelay(api, newMemScores(), 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")
	waitFor(t, snapshots, "playing", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})

	done := make(chan struct{})
	go func() {
		_ = machine.Submit(context.Background(), "a")
		close(done)
	}()
	waitFor(t, snapshots, "feedback", func(s client.Snapshot) bool {
		return s.State == client.StateFeedback
	})

	machine.GoHome()
	close(gate)
	<-done

	snap := machine.Snapshot()
	if snap.State != client.StateNotStarted {
		t.Fatalf("expected stale check result discarded, state=%s", snap.State)
	}
	if snap.Score != 0 {
		t.Fatalf("expected no score from a dead session, got %d", snap.Score)
	}
}

func TestRestartResetsScoreAndPosition(t *testing.T) {
	api := &fakeAPI{
		game: batchGame(
			domain.PublicQuestion{ID: 1, Text: "one", Options: []string{"a"}},
			domain.PublicQuestion{ID: 2, Text: "two", Options: []string{"c"}},
		),
		answers: map[int]string{1: "a", 2: "c"},
	}
	// Long delay: the pending advance must be superseded by the restart.
	machine := client.NewMachineWithDelay(api, newMemScores(), time.Hour)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")
	waitFor(t, snapshots, "playing", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})
	if err := machine.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitFor(t, snapshots, "feedback", func(s client.Snapshot) bool {
		return s.State == client.StateFeedback && s.Score == 1
	})

	machine.Restart(context.Background())
	snap := waitFor(t, snapshots, "restarted", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})
	if snap.Score != 0 || snap.Position != 0 || snap.Question.ID != 1 {
		t.Fatalf("expected fresh session after restart, got %+v", snap)
	}
}

func TestHighScoreReadAtStartAndOnlyBeatenOnImprovement(t *testing.T) {
	api := &fakeAPI{
		game:    batchGame(domain.PublicQuestion{ID: 1, Text: "one", Options: []string{"a"}}),
		answers: map[int]string{1: "a"},
	}
	scores := newMemScores()
	if _, err := scores.MaybePersist("world-geo", 5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	machine := client.NewMachineWithDelay(api, scores, 0)
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(context.Background(), "world-geo")
	snap := waitFor(t, snapshots, "playing", func(s client.Snapshot) bool {
		return s.State == client.StatePlaying
	})
	if snap.HighScore != 5 {
		t.Fatalf("expected stored high score 5 at start, got %d", snap.HighScore)
	}

	if err := machine.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap = waitFor(t, snapshots, "won", func(s client.Snapshot) bool {
		return s.State == client.StateWon
	})
	if snap.HighScore != 5 {
		t.Fatalf("high score must not decrease, got %d", snap.HighScore)
	}
	if best, _ := scores.HighScore("world-geo"); best != 5 {
		t.Fatalf("expected stored best unchanged at 5, got %d", best)
	}
}
