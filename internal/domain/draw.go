package domain

// Draw returns n distinct cards from a freshly shuffled copy of cards.
// The input slice is never reordered.
func Draw(cards []Card, n int, rng RNG) ([]Card, error) {
	if n < 1 {
		return nil, ErrInvalidN
	}
	if n > len(cards) {
		return nil, ErrNExceedsDeck
	}

	// Fisher-Yates over an index slice; only the first n are kept.
	indices := make([]int, len(cards))
	for i := range indices {
		indices[i] = i
	}
	for i := len(indices) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}

	drawn := make([]Card, n)
	for i := range n {
		drawn[i] = cards[indices[i]]
	}
	return drawn, nil
}
