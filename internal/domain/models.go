package domain

// Question models an MCQ trivia question. The Answer field is the stored
// correct option literal and must never leave the server in a play payload.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// PublicQuestion is the answer-stripped view of a Question sent to players.
type PublicQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// Public returns the answer-stripped view of the question.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: q.Options}
}

// Category is a named, independently playable set of questions.
// Identity is the slug; instances are rebuilt wholesale on registry
// reload and never patched in place.
type Category struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// CategorySummary is the listing view of a category.
type CategorySummary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// GameMode distinguishes the two question-delivery modes.
type GameMode string

const (
	// ModeSequence delivers only question ids up front; bodies are
	// fetched one at a time.
	ModeSequence GameMode = "sequence"
	// ModeBatch delivers the full answer-stripped question set up front.
	ModeBatch GameMode = "batch"
)

// NewGame is the tagged result of starting a game: exactly one of Order
// or Questions is populated, selected by Mode.
type NewGame struct {
	Mode      GameMode
	Order     []int
	Questions []PublicQuestion
}

// CheckResult reports the outcome of a server-side answer check.
type CheckResult struct {
	Correct bool `json:"correct"`
}
