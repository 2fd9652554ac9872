package dispatcher

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/executor"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

type stubCapability struct {
	passed bool
}

func (s stubCapability) Run(context.Context, image.Image, capability.Params) (capability.Result, error) {
	return capability.Result{Passed: s.passed}, nil
}

func TestRun_RestoresIdxOrderAfterConcurrentCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	caps := executor.Capabilities{Color: stubCapability{passed: true}}

	var inputs []executor.Input
	// Deliberately out of idx order to verify the final sort.
	for _, idx := range []int{5, 1, 3, 2, 4} {
		inputs = append(inputs, executor.Input{
			ROI:       roi.ROI{Idx: idx, Type: roi.Color, Coords: roi.Coords{X1: 0, Y1: 0, X2: 10, Y2: 10}, DeviceLocation: 1},
			Image:     img,
			Workspace: executor.Workspace{OutputDir: t.TempDir()},
		})
	}

	results := Run(context.Background(), caps, inputs, 3)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i+1, r.RoiID)
	}
}

func TestRun_MaxWorkersAboveTaskCountStillRunsEveryTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	caps := executor.Capabilities{Color: stubCapability{passed: true}}
	inputs := []executor.Input{
		{ROI: roi.ROI{Idx: 1, Type: roi.Color, Coords: roi.Coords{X1: 0, Y1: 0, X2: 5, Y2: 5}, DeviceLocation: 1}, Image: img, Workspace: executor.Workspace{OutputDir: t.TempDir()}},
	}

	results := Run(context.Background(), caps, inputs, 64)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestRun_EmptyInputReturnsNil(t *testing.T) {
	defer goleak.VerifyNone(t)
	assert.Nil(t, Run(context.Background(), executor.Capabilities{}, nil, 4))
}
