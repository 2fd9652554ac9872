package coordinator

import (
	"image"

	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/golden"
)

// goldenStoreAdapter bridges a concrete *golden.Store to the
// capability.GoldenStore interface. The two packages define structurally
// identical Scorer interfaces but distinct MatchResult/GoldenMatch
// struct types, so the Scorer argument passes through unmodified (Go
// allows assigning an interface value to another interface variable
// when the method sets match) while the return value needs an explicit
// field-by-field conversion.
type goldenStoreAdapter struct {
	store *golden.Store
}

// NewGoldenCapabilityStore wraps a product's golden.Store for use by the
// Compare capability backend.
func NewGoldenCapabilityStore(store *golden.Store) capability.GoldenStore {
	return goldenStoreAdapter{store: store}
}

func (a goldenStoreAdapter) Match(roiIdx int, crop image.Image, threshold float64, scorer capability.Scorer) (capability.GoldenMatch, error) {
	result, err := a.store.Match(roiIdx, crop, threshold, scorer)
	if err != nil {
		return capability.GoldenMatch{}, err
	}
	return capability.GoldenMatch{
		Similarity:  result.Similarity,
		MatchedFile: result.MatchedFile,
		GoldenImage: result.GoldenImage,
	}, nil
}
