package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler exposes the trivia API as JSON over HTTP.
type Handler struct {
	service *app.TriviaService
}

func NewHandler(service *app.TriviaService) *Handler {
	return &Handler{service: service}
}

// Router builds the chi router: CORS-enabled JSON API under /api plus a
// health probe.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Get("/{category}/newgame", h.newGame)
		r.Get("/{category}/question/{id}", h.getQuestion)
		r.Post("/{category}/check", h.checkAnswer)
	})
	return r
}

type errorPayload struct {
	Error string `json:"error"`
}

type newGameSequence struct {
	Order []int `json:"order"`
}

type newGameBatch struct {
	Questions []domain.PublicQuestion `json:"questions"`
}

type checkRequest struct {
	ID     int    `json:"id"`
	Answer string `json:"answer"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) newGame(w http.ResponseWriter, r *http.Request) {
	mode := domain.ModeSequence
	if r.URL.Query().Get("full") == "true" {
		mode = domain.ModeBatch
	}

	game, err := h.service.NewGame(r.Context(), chi.URLParam(r, "category"), mode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch game.Mode {
	case domain.ModeBatch:
		questions := game.Questions
		if questions == nil {
			questions = []domain.PublicQuestion{}
		}
		writeJSON(w, http.StatusOK, newGameBatch{Questions: questions})
	default:
		order := game.Order
		if order == nil {
			order = []int{}
		}
		writeJSON(w, http.StatusOK, newGameSequence{Order: order})
	}
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, domain.ErrQuestionNotFound)
		return
	}

	question, err := h.service.Question(r.Context(), chi.URLParam(r, "category"), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) checkAnswer(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid check payload"})
		return
	}

	result, err := h.service.Check(r.Context(), chi.URLParam(r, "category"), req.ID, req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: "Category not found"})
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: "Question not found"})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
