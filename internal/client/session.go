package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// State is the phase of a play session.
type State int

const (
	StateNotStarted State = iota
	StateAwaitingOrder
	StatePlaying
	StateFeedback
	StateWon
	StateLost
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateAwaitingOrder:
		return "awaiting-order"
	case StatePlaying:
		return "playing"
	case StateFeedback:
		return "feedback"
	case StateWon:
		return "won"
	case StateLost:
		return "lost"
	}
	return "unknown"
}

const (
	feedbackCorrect   = "Correct!"
	feedbackIncorrect = "Incorrect!"

	// fallbackStartID is the assumed first question id when a new-game
	// request yields neither an order nor a batch. Nothing guarantees
	// it exists; a 404 on it simply loses the session.
	fallbackStartID = 1

	defaultAdvanceDelay = time.Second
)

// ErrNotPlaying is returned when an answer is submitted outside the
// Playing state.
var ErrNotPlaying = errors.New("no question awaiting an answer")

// ScoreStore persists the best score per category across sessions.
type ScoreStore interface {
	HighScore(category string) (int, error)
	MaybePersist(category string, score int) (bool, error)
}

// Snapshot is an immutable view of the session handed to subscribers.
type Snapshot struct {
	State       State
	Category    string
	Mode        domain.GameMode
	Score       int
	HighScore   int
	Feedback    string
	Question    domain.PublicQuestion
	HasQuestion bool
	Position    int
	Total       int // 0 when the sequence length is unknown (fallback runs)
}

// session is the single source of truth for one play-through. It is only
// touched under the machine's lock and replaced wholesale on restart.
type session struct {
	state     State
	category  string
	mode      domain.GameMode
	order     []int
	batch     []domain.PublicQuestion
	pos       int
	fallback  bool // sequence of incrementing ids, no known end
	nextID    int  // current id in a fallback run
	current   domain.PublicQuestion
	hasCurr   bool
	score     int
	highScore int
	feedback  string
}

// Machine serializes all session transitions. Fetch completions carry the
// token of the session they were issued for; a restart or goHome bumps
// the token so late responses from a dead session are discarded instead
// of resurrecting it.
type Machine struct {
	api          GameAPI
	scores       ScoreStore
	preferFull   bool
	advanceDelay time.Duration

	mu          sync.Mutex
	token       int
	sess        session
	timer       *time.Timer
	subscribers map[chan Snapshot]struct{}
}

func NewMachine(api GameAPI, scores ScoreStore) *Machine {
	return NewMachineWithDelay(api, scores, defaultAdvanceDelay)
}

// NewMachineWithDelay overrides the feedback-to-advance delay, mainly so
// tests do not sleep.
func NewMachineWithDelay(api GameAPI, scores ScoreStore, advanceDelay time.Duration) *Machine {
	return &Machine{
		api:          api,
		scores:       scores,
		advanceDelay: advanceDelay,
		subscribers:  make(map[chan Snapshot]struct{}),
	}
}

// PreferFull makes Start request batch delivery (?full=true).
func (m *Machine) PreferFull(full bool) {
	m.mu.Lock()
	m.preferFull = full
	m.mu.Unlock()
}

// Snapshot returns the current session view.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot per transition,
// starting with the current one. The caller must invoke cancel.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	initial := m.snapshotLocked()
	m.mu.Unlock()

	ch <- initial

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// Start begins a new session for the category: NotStarted -> AwaitingOrder,
// then a new-game request decides the delivery mode. An empty or failed
// response falls back to a sequence starting at id 1.
func (m *Machine) Start(ctx context.Context, category string) {
	m.mu.Lock()
	m.token++
	token := m.token
	m.stopTimerLocked()
	highScore := m.loadHighScore(category)
	m.sess = session{state: StateAwaitingOrder, category: category, highScore: highScore}
	m.broadcastLocked()
	m.mu.Unlock()

	m.deal(ctx, token, category)
}

// Restart replays the same category from scratch, resetting score,
// position, and feedback.
func (m *Machine) Restart(ctx context.Context) {
	m.mu.Lock()
	category := m.sess.category
	if category == "" {
		m.mu.Unlock()
		return
	}
	m.token++
	token := m.token
	m.stopTimerLocked()
	m.sess = session{state: StateAwaitingOrder, category: category, highScore: m.sess.highScore}
	m.broadcastLocked()
	m.mu.Unlock()

	m.deal(ctx, token, category)
}

// GoHome abandons the session and returns to category selection. Any
// in-flight fetch for the old session is discarded when it lands.
func (m *Machine) GoHome() {
	m.mu.Lock()
	m.token++
	m.stopTimerLocked()
	m.sess = session{state: StateNotStarted}
	m.broadcastLocked()
	m.mu.Unlock()
}

// Submit answers the current question: Playing -> Feedback, then the
// server verdict either schedules an advance (correct) or loses the
// session (incorrect). Fetch and check failures lose the session too.
func (m *Machine) Submit(ctx context.Context, option string) error {
	m.mu.Lock()
	if m.sess.state != StatePlaying || !m.sess.hasCurr {
		m.mu.Unlock()
		return ErrNotPlaying
	}
	token := m.token
	category := m.sess.category
	id := m.sess.current.ID
	m.sess.state = StateFeedback
	m.broadcastLocked()
	m.mu.Unlock()

	correct, err := m.api.Check(ctx, category, id, option)

	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token {
		return nil // session was reset while the check was in flight
	}
	if err != nil {
		m.loseLocked("")
		return nil
	}
	if !correct {
		m.loseLocked(feedbackIncorrect)
		return nil
	}

	m.sess.score++
	m.sess.feedback = feedbackCorrect
	if m.sess.score > m.sess.highScore {
		m.sess.highScore = m.sess.score
		if _, err := m.scores.MaybePersist(category, m.sess.score); err != nil {
			log.Printf("persist high score: %v", err)
		}
	}
	m.broadcastLocked()

	m.timer = time.AfterFunc(m.advanceDelay, func() {
		m.advance(token)
	})
	return nil
}

// deal issues the new-game request for a freshly started session.
func (m *Machine) deal(ctx context.Context, token int, category string) {
	m.mu.Lock()
	full := m.preferFull
	m.mu.Unlock()

	game, err := m.api.NewGame(ctx, category, full)

	m.mu.Lock()
	if token != m.token {
		m.mu.Unlock()
		return
	}

	switch {
	case err == nil && game.Mode == domain.ModeBatch && len(game.Questions) > 0:
		m.sess.mode = domain.ModeBatch
		m.sess.batch = game.Questions
		m.sess.pos = 0
		m.sess.current = game.Questions[0]
		m.sess.hasCurr = true
		m.sess.state = StatePlaying
		m.broadcastLocked()
		m.mu.Unlock()
		return

	case err == nil && game.Mode == domain.ModeSequence && len(game.Order) > 0:
		m.sess.mode = domain.ModeSequence
		m.sess.order = game.Order
		m.sess.pos = 0
		m.mu.Unlock()
		m.fetchQuestion(ctx, token, game.Order[0])
		return

	default:
		// Nothing usable came back: assume the historical first id and
		// step through ids blindly until something 404s.
		m.sess.mode = domain.ModeSequence
		m.sess.fallback = true
		m.sess.nextID = fallbackStartID
		m.mu.Unlock()
		m.fetchQuestion(ctx, token, fallbackStartID)
		return
	}
}

// fetchQuestion resolves a question body by id and, if the session is
// still the same one, makes it current: AwaitingOrder/Feedback -> Playing.
func (m *Machine) fetchQuestion(ctx context.Context, token, id int) {
	question, err := m.api.Question(ctx, m.categoryFor(token), id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token {
		return
	}
	if err != nil {
		m.loseLocked("")
		return
	}
	m.sess.current = question
	m.sess.hasCurr = true
	m.sess.state = StatePlaying
	m.broadcastLocked()
}

// advance fires after the feedback delay for a correct answer. A restart
// or goHome in the meantime invalidates the token and the timer is a
// no-op.
func (m *Machine) advance(token int) {
	m.mu.Lock()
	if token != m.token || m.sess.state != StateFeedback {
		m.mu.Unlock()
		return
	}
	m.sess.feedback = ""
	m.sess.hasCurr = false

	if m.sess.mode == domain.ModeBatch {
		m.sess.pos++
		if m.sess.pos >= len(m.sess.batch) {
			m.sess.state = StateWon
			m.broadcastLocked()
			m.mu.Unlock()
			return
		}
		m.sess.current = m.sess.batch[m.sess.pos]
		m.sess.hasCurr = true
		m.sess.state = StatePlaying
		m.broadcastLocked()
		m.mu.Unlock()
		return
	}

	var nextID int
	if m.sess.fallback {
		m.sess.nextID++
		nextID = m.sess.nextID
	} else {
		m.sess.pos++
		if m.sess.pos >= len(m.sess.order) {
			m.sess.state = StateWon
			m.broadcastLocked()
			m.mu.Unlock()
			return
		}
		nextID = m.sess.order[m.sess.pos]
	}
	m.broadcastLocked()
	m.mu.Unlock()

	// Timer goroutine, no caller context to inherit.
	m.fetchQuestion(context.Background(), token, nextID)
}

func (m *Machine) loseLocked(feedback string) {
	m.sess.state = StateLost
	m.sess.feedback = feedback
	m.broadcastLocked()
}

func (m *Machine) loadHighScore(category string) int {
	if m.scores == nil {
		return 0
	}
	score, err := m.scores.HighScore(category)
	if err != nil {
		log.Printf("read high score: %v", err)
		return 0
	}
	return score
}

func (m *Machine) categoryFor(token int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token {
		return ""
	}
	return m.sess.category
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	total := 0
	switch {
	case m.sess.mode == domain.ModeBatch:
		total = len(m.sess.batch)
	case m.sess.fallback:
		total = 0
	default:
		total = len(m.sess.order)
	}
	return Snapshot{
		State:       m.sess.state,
		Category:    m.sess.category,
		Mode:        m.sess.mode,
		Score:       m.sess.score,
		HighScore:   m.sess.highScore,
		Feedback:    m.sess.feedback,
		Question:    m.sess.current,
		HasQuestion: m.sess.hasCurr,
		Position:    m.sess.pos,
		Total:       total,
	}
}

func (m *Machine) broadcastLocked() {
	snap := m.snapshotLocked()
	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot so a slow consumer
			// never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
