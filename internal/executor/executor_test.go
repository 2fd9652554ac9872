package executor

import (
	"context"
	"image"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

func testWorkspace(t *testing.T) Workspace {
	t.Helper()
	dir := t.TempDir()
	return Workspace{OutputDir: dir, ClientMountPrefix: "/mnt/inspection"}
}

// Scenario F (§8): ROI coords outside the captured image bounds.
func TestRun_OutOfBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	in := Input{
		ROI: roi.ROI{
			Idx: 1, Type: roi.Color, Coords: roi.Coords{X1: 350, Y1: 50, X2: 500, Y2: 150},
			DeviceLocation: 1,
		},
		Image:     img,
		Workspace: testWorkspace(t),
	}

	result := Run(context.Background(), Capabilities{}, in)
	assert.False(t, result.Passed)
	assert.Equal(t, "out_of_bounds", result.Error)
	assert.Nil(t, result.RoiImagePath)
}

func TestRun_CapabilityUnavailableWhenNoBackendWired(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	in := Input{
		ROI:       roi.ROI{Idx: 2, Type: roi.Barcode, Coords: roi.Coords{X1: 0, Y1: 0, X2: 10, Y2: 10}, DeviceLocation: 1},
		Image:     img,
		Workspace: testWorkspace(t),
	}

	result := Run(context.Background(), Capabilities{}, in)
	assert.False(t, result.Passed)
	assert.Equal(t, capability.ErrCapabilityUnavailable, result.Error)
	// Even on capability_unavailable the crop is still written (§4.4 step 6).
	require.NotNil(t, result.RoiImagePath)
}

type panickingCapability struct{}

func (panickingCapability) Run(context.Context, image.Image, capability.Params) (capability.Result, error) {
	panic("simulated capability crash")
}

func TestRun_CapabilityPanicBecomesFailedResult(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	in := Input{
		ROI:       roi.ROI{Idx: 3, Type: roi.Color, Coords: roi.Coords{X1: 0, Y1: 0, X2: 10, Y2: 10}, DeviceLocation: 1},
		Image:     img,
		Workspace: testWorkspace(t),
	}

	result := Run(context.Background(), Capabilities{Color: panickingCapability{}}, in)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Error, "capability panic")
}

// §4.4 "return tuple positional discipline": RoiImagePath must be the
// scoring crop, GoldenImagePath the resized golden — never swapped.
func TestRun_CompareWritesCropAndGoldenToDistinctPaths(t *testing.T) {
	ws := testWorkspace(t)
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	threshold := 0.9
	in := Input{
		ROI: roi.ROI{
			Idx: 4, Type: roi.Compare, Coords: roi.Coords{X1: 0, Y1: 0, X2: 10, Y2: 10},
			DeviceLocation: 1, AIThreshold: &threshold, FeatureMethod: roi.DeepCNN,
		},
		Image:     img,
		Workspace: ws,
	}

	golden := image.NewRGBA(image.Rect(0, 0, 10, 10))
	backend := stubCompare{result: capability.Result{Passed: true, Similarity: 0.95, Threshold: 0.9, GoldenImage: golden}}

	result := Run(context.Background(), Capabilities{Compare: backend}, in)
	require.NotNil(t, result.RoiImagePath)
	require.NotNil(t, result.GoldenImagePath)
	assert.NotEqual(t, *result.RoiImagePath, *result.GoldenImagePath)
	assert.Contains(t, *result.RoiImagePath, "roi_4.jpg")
	assert.Contains(t, *result.GoldenImagePath, "golden_4.jpg")

	_, err := os.Stat(ws.OutputDir + "/roi_4.jpg")
	require.NoError(t, err)
	_, err = os.Stat(ws.OutputDir + "/golden_4.jpg")
	require.NoError(t, err)
}

type stubCompare struct {
	result capability.Result
}

func (s stubCompare) Run(context.Context, image.Image, capability.Params) (capability.Result, error) {
	return s.result, nil
}
