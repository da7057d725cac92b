package domain

import "errors"

var (
	// ErrCategoryNotFound is returned when a slug resolves to no known category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrQuestionNotFound indicates a question id is absent from its category.
	ErrQuestionNotFound = errors.New("question not found")
)
