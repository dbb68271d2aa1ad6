package domain_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomtoy/mysticorb/internal/domain"
)

// deterministicRNG returns values from a pre-set sequence.
type deterministicRNG struct {
	values []int
	idx    int
}

func (r *deterministicRNG) Intn(n int) int {
	v := r.values[r.idx%len(r.values)] % n
	r.idx++
	return v
}

type seededRNG struct{ r *rand.Rand }

func (s seededRNG) Intn(n int) int { return s.r.IntN(n) }

func testCards(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range n {
		cards[i] = domain.NewCatalogCard(domain.CatalogEntry{Name: "Card " + string(rune('A'+i))})
	}
	return cards
}

func TestDraw_DistinctCards(t *testing.T) {
	cards := testCards(22)
	rng := seededRNG{r: rand.New(rand.NewPCG(1, 2))}

	for _, n := range []int{1, 3} {
		for range 200 {
			drawn, err := domain.Draw(cards, n, rng)
			require.NoError(t, err)
			require.Len(t, drawn, n)

			seen := make(map[string]bool)
			for _, c := range drawn {
				assert.False(t, seen[c.ID], "duplicate card %s", c.ID)
				seen[c.ID] = true
			}
		}
	}
}

func TestDraw_DoesNotReorderInput(t *testing.T) {
	cards := testCards(5)
	rng := &deterministicRNG{values: []int{0}}

	drawn, err := domain.Draw(cards, 3, rng)
	require.NoError(t, err)

	assert.Len(t, drawn, 3)
	for i, c := range cards {
		assert.Equal(t, "Card "+string(rune('A'+i)), c.Name)
	}
}

func TestDraw_InvalidN(t *testing.T) {
	cards := testCards(5)
	rng := &deterministicRNG{values: []int{0}}

	for _, n := range []int{0, -1} {
		_, err := domain.Draw(cards, n, rng)
		assert.ErrorIs(t, err, domain.ErrInvalidN, "n=%d", n)
	}
}

func TestDraw_NExceedsDeck(t *testing.T) {
	_, err := domain.Draw(testCards(2), 3, &deterministicRNG{values: []int{0}})
	assert.ErrorIs(t, err, domain.ErrNExceedsDeck)
}
