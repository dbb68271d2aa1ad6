package domain

import "errors"

var (
	ErrInvalidN       = errors.New("n must be at least 1")
	ErrNExceedsDeck   = errors.New("n exceeds number of cards in deck")
	ErrDeckNotFound   = errors.New("deck not found")
	ErrCardNotFound   = errors.New("card not found")
	ErrSpreadNotFound = errors.New("spread not found")
)
