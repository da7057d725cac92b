package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/shuffle"
)

// TriviaService contains the question-bank use cases: listing categories,
// dealing new games, serving sanitized questions, and checking answers.
// It is the single point of truth for correctness; clients never learn
// stored answers except through Check.
type TriviaService struct {
	registry *Registry

	mu  sync.Mutex // guards rnd, math/rand.Rand is not goroutine-safe
	rnd *rand.Rand
}

func NewTriviaService(registry *Registry) *TriviaService {
	return &TriviaService{
		registry: registry,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Categories lists every known category with its question count.
func (s *TriviaService) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	return s.registry.List(ctx)
}

// NewGame deals a fresh game for the category. Sequence mode returns a
// shuffled id order and nothing else; batch mode returns the full
// question set, shuffled, with every answer stripped before it crosses
// the wire.
func (s *TriviaService) NewGame(ctx context.Context, slug string, mode domain.GameMode) (domain.NewGame, error) {
	cat, err := s.registry.Get(ctx, slug)
	if err != nil {
		return domain.NewGame{}, err
	}

	if mode == domain.ModeBatch {
		questions := make([]domain.PublicQuestion, 0, len(cat.Questions))
		for _, q := range s.shuffleQuestions(cat.Questions) {
			questions = append(questions, q.Public())
		}
		return domain.NewGame{Mode: domain.ModeBatch, Questions: questions}, nil
	}

	ids := make([]int, 0, len(cat.Questions))
	for _, q := range cat.Questions {
		ids = append(ids, q.ID)
	}
	s.mu.Lock()
	order := shuffle.Slice(s.rnd, ids)
	s.mu.Unlock()
	return domain.NewGame{Mode: domain.ModeSequence, Order: order}, nil
}

// Question returns the answer-stripped question for category+id.
func (s *TriviaService) Question(ctx context.Context, slug string, id int) (domain.PublicQuestion, error) {
	q, err := s.findQuestion(ctx, slug, id)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	return q.Public(), nil
}

// Check compares a submitted answer against the stored literal for
// category+id. Comparison is exact: case- and whitespace-sensitive.
func (s *TriviaService) Check(ctx context.Context, slug string, id int, answer string) (domain.CheckResult, error) {
	q, err := s.findQuestion(ctx, slug, id)
	if err != nil {
		return domain.CheckResult{}, err
	}
	return domain.CheckResult{Correct: q.Answer == answer}, nil
}

func (s *TriviaService) findQuestion(ctx context.Context, slug string, id int) (domain.Question, error) {
	cat, err := s.registry.Get(ctx, slug)
	if err != nil {
		return domain.Question{}, err
	}
	for i := range cat.Questions {
		if cat.Questions[i].ID == id {
			return cat.Questions[i], nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *TriviaService) shuffleQuestions(questions []domain.Question) []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shuffle.Slice(s.rnd, questions)
}
