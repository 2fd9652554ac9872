package capability

import (
	"context"
	"image"
)

// ColorSpace is the space a ColorRange's bounds are expressed in.
type ColorSpace string

const (
	RGB ColorSpace = "RGB"
	HSV ColorSpace = "HSV"
)

// ColorRange is one entry of a product's per-ROI color config (§3 "Color
// Config"). Multiple ranges may share Name; their matches are summed.
type ColorRange struct {
	Name       string
	Lower      [3]float64
	Upper      [3]float64
	Space      ColorSpace
	ThresholdPct float64
}

// ColorBackend implements §4.2.4: evaluate each configured range over the
// crop, sum same-named ranges, and classify against the winning color's
// threshold.
type ColorBackend struct{}

func NewColorBackend() *ColorBackend { return &ColorBackend{} }

func (ColorBackend) Run(_ context.Context, cropped image.Image, params Params) (Result, error) {
	if len(params.ColorRanges) == 0 {
		return Result{Passed: false, Error: ErrCapabilityUnavailable}, nil
	}

	bounds := cropped.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return Result{Passed: false, Error: "empty crop"}, nil
	}

	type accumulator struct {
		matchedPixels int
		// minThreshold is the OPEN QUESTION #1 decision (SPEC_FULL §13):
		// when ranges share a name with different thresholds, the
		// conservative minimum among them governs the pass/fail check.
		minThreshold float64
		rSum, gSum, bSum, pixelSum int64
	}
	totals := make(map[string]*accumulator)
	order := make([]string, 0, len(params.ColorRanges))

	for _, rng := range params.ColorRanges {
		acc, ok := totals[rng.Name]
		if !ok {
			acc = &accumulator{minThreshold: rng.ThresholdPct}
			totals[rng.Name] = acc
			order = append(order, rng.Name)
		} else if rng.ThresholdPct < acc.minThreshold {
			acc.minThreshold = rng.ThresholdPct
		}

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r8, g8, b8 := rgb8(cropped.At(x, y))
				v1, v2, v3 := componentsFor(rng.Space, r8, g8, b8)
				if inRange(v1, v2, v3, rng.Lower, rng.Upper) {
					acc.matchedPixels++
					acc.rSum += int64(r8)
					acc.gSum += int64(g8)
					acc.bSum += int64(b8)
					acc.pixelSum++
				}
			}
		}
	}

	var winnerName string
	var winnerRaw float64
	for _, name := range order {
		acc := totals[name]
		raw := float64(acc.matchedPixels) / float64(total) * 100.0
		if winnerName == "" || raw > winnerRaw {
			winnerName = name
			winnerRaw = raw
		}
	}

	winner := totals[winnerName]
	capped := winnerRaw
	if capped > 100 {
		capped = 100
	}

	var dominant [3]uint8
	if winner.pixelSum > 0 {
		dominant = [3]uint8{
			uint8(winner.rSum / winner.pixelSum),
			uint8(winner.gSum / winner.pixelSum),
			uint8(winner.bSum / winner.pixelSum),
		}
	}

	return Result{
		Passed:              winnerRaw >= winner.minThreshold,
		DetectedColor:       winnerName,
		MatchPercentage:     capped,
		MatchPercentageRaw:  winnerRaw,
		DominantColor:       dominant,
		ColorThreshold:      winner.minThreshold,
	}, nil
}

func rgb8(c interface{ RGBA() (uint32, uint32, uint32, uint32) }) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func componentsFor(space ColorSpace, r, g, b uint8) (float64, float64, float64) {
	if space == HSV {
		h, s, v := rgbToHSV(r, g, b)
		return h, s, v
	}
	return float64(r), float64(g), float64(b)
}

func inRange(v1, v2, v3 float64, lower, upper [3]float64) bool {
	return v1 >= lower[0] && v1 <= upper[0] &&
		v2 >= lower[1] && v2 <= upper[1] &&
		v3 >= lower[2] && v3 <= upper[2]
}

// rgbToHSV converts 8-bit RGB to H in [0,360), S and V in [0,100].
func rgbToHSV(r, g, b uint8) (float64, float64, float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := maxOf3(rf, gf, bf)
	min := minOf3(rf, gf, bf)
	delta := max - min

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == rf:
		h = 60 * (((gf - bf) / delta))
	case max == gf:
		h = 60 * (((bf-rf)/delta)+2)
	default:
		h = 60 * (((rf-gf)/delta)+4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if max > 0 {
		s = (delta / max) * 100
	}
	v := max * 100

	return h, s, v
}

func maxOf3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func minOf3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
