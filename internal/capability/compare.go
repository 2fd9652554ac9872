package capability

import (
	"context"
	"image"
	"math"

	"github.com/bosocmputer/visual-inspector/internal/processor"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

// GoldenStore is the subset of internal/golden.Store the Compare backend
// needs; kept as an interface here so the backend is testable without a
// real filesystem-backed store.
type GoldenStore interface {
	Match(roiIdx int, crop image.Image, threshold float64, scorer Scorer) (GoldenMatch, error)
}

// Scorer and GoldenMatch mirror internal/golden's Scorer/MatchResult
// shapes; capability defines its own so it does not import golden
// directly (golden is wired in by main, which supplies a store adapter).
type Scorer interface {
	Score(crop, candidate image.Image) (similarity float64, used image.Image, err error)
}

type GoldenMatch struct {
	Similarity  float64
	MatchedFile string
	GoldenImage image.Image
}

// Extractor computes a similarity in [0,1] between two already
// illumination-normalized, identically-shaped images for a given feature
// method. The core treats the actual model internals as pluggable,
// per §4.2.2 / Non-goals ("feature-extraction model internals... treated
// as pluggable capability implementations").
type Extractor interface {
	Similarity(a, b image.Image, method roi.FeatureMethod) (float64, error)
}

// HistogramExtractor is the default Extractor: a channel-wise color
// histogram cosine similarity. It stands in for the deep_cnn embedding and
// keypoint descriptors named in §4.2.2 without depending on a model
// runtime; a real embedding/keypoint engine can be wired in by
// implementing Extractor.
type HistogramExtractor struct{}

func (HistogramExtractor) Similarity(a, b image.Image, _ roi.FeatureMethod) (float64, error) {
	ha := histogram(a)
	hb := histogram(b)
	return cosineSimilarity(ha, hb), nil
}

const histogramBuckets = 32

func histogram(img image.Image) []float64 {
	h := make([]float64, histogramBuckets*3)
	bounds := img.Bounds()
	var n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			h[bucket(r)]++
			h[histogramBuckets+bucket(g)]++
			h[2*histogramBuckets+bucket(b)]++
			n++
		}
	}
	if n == 0 {
		return h
	}
	for i := range h {
		h[i] /= n
	}
	return h
}

func bucket(channel16 uint32) int {
	v := int(channel16 >> 8) // 0..255
	b := v * histogramBuckets / 256
	if b >= histogramBuckets {
		b = histogramBuckets - 1
	}
	return b
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim
}

// CompareBackend implements §4.2.2: pre-normalize illumination, resize the
// golden to the crop's exact shape, score, and classify.
type CompareBackend struct {
	Store     GoldenStore
	Extractor Extractor
}

func NewCompareBackend(store GoldenStore, extractor Extractor) *CompareBackend {
	if extractor == nil {
		extractor = HistogramExtractor{}
	}
	return &CompareBackend{Store: store, Extractor: extractor}
}

func (c *CompareBackend) Run(_ context.Context, cropped image.Image, params Params) (Result, error) {
	if c.Store == nil {
		return Result{Passed: false, Error: ErrCapabilityUnavailable}, nil
	}

	normalizedCrop := processor.NormalizeIllumination(cropped)

	scorer := methodScorer{extractor: c.Extractor, method: params.FeatureMethod}
	match, err := c.Store.Match(params.ROIIdx, normalizedCrop, params.Threshold, scorer)
	if err != nil {
		return Result{Passed: false, Error: err.Error()}, nil
	}

	return Result{
		Passed:      match.Similarity >= params.Threshold,
		Similarity:  match.Similarity,
		MatchedFile: match.MatchedFile,
		Threshold:   params.Threshold,
		GoldenImage: match.GoldenImage,
	}, nil
}

// methodScorer adapts an Extractor into the golden store's Scorer contract:
// normalize the candidate's illumination, resize it to the crop's exact
// shape (bilinear), then score.
type methodScorer struct {
	extractor Extractor
	method    roi.FeatureMethod
}

func (m methodScorer) Score(crop, candidate image.Image) (float64, image.Image, error) {
	normalized := processor.NormalizeIllumination(candidate)
	resized := processor.ResizeTo(normalized, crop.Bounds())
	sim, err := m.extractor.Similarity(crop, resized, m.method)
	return sim, resized, err
}
