package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinScorer_Score(t *testing.T) {
	scorer := NewLevenshteinScorer()

	t.Run("exact match after normalization", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.Score("Ramesh", "ramesh"))
		assert.Equal(t, 1.0, scorer.Score("  Ramesh  Kumar ", "ramesh kumar"))
	})

	t.Run("word containment scores high", func(t *testing.T) {
		assert.Equal(t, 0.9, scorer.Score("Ramesh", "Ramesh Kumar"))
		assert.Equal(t, 0.9, scorer.Score("cotton", "printed cotton"))
	})

	t.Run("close misspelling beats distant name", func(t *testing.T) {
		close := scorer.Score("Ramesh", "Ramess")
		far := scorer.Score("Ramesh", "Suresh Traders")
		assert.Greater(t, close, far)
		assert.Greater(t, close, 0.8)
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.Score("", "Ramesh"))
		assert.Equal(t, 0.0, scorer.Score("Ramesh", ""))
	})

	t.Run("unrelated strings score low", func(t *testing.T) {
		assert.Less(t, scorer.Score("silk", "denim"), 0.5)
	})
}
