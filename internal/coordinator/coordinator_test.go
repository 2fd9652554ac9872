package coordinator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/visual-inspector/internal/barcoderesolver"
	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/executor"
	"github.com/bosocmputer/visual-inspector/internal/product"
	"github.com/bosocmputer/visual-inspector/internal/session"
)

type passCapability struct{}

func (passCapability) Run(context.Context, image.Image, capability.Params) (capability.Result, error) {
	return capability.Result{Passed: true}, nil
}

func allPassCapabilities(product.Config) executor.Capabilities {
	return executor.Capabilities{Barcode: passCapability{}, Compare: passCapability{}, OCR: passCapability{}, Color: passCapability{}}
}

func setupCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	sharedRoot := t.TempDir()
	configRoot := t.TempDir()

	sm := session.NewManager(sharedRoot, time.Hour)
	ps := product.NewStore(configRoot, time.Minute)

	productDir := filepath.Join(configRoot, "products", "widget-a")
	require.NoError(t, os.MkdirAll(productDir, 0o755))
	roisJSON := `[
      [1, 1, [0,0,50,50], 305, 3000],
      [2, 4, [60,0,120,50], 305, 3000]
    ]`
	require.NoError(t, os.WriteFile(filepath.Join(productDir, "rois_config_widget-a.json"), []byte(roisJSON), 0o644))

	return &Coordinator{
		Sessions:     sm,
		SharedRoot:   sharedRoot,
		Products:     ps,
		Capabilities: allPassCapabilities,
		Linker:       barcoderesolver.NoOpLinker{},
		MaxWorkers:   2,
	}, sharedRoot
}

func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 150, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestInspect_FromFilenameProducesAggregatedResult(t *testing.T) {
	c, sharedRoot := setupCoordinator(t)
	sess, err := c.Sessions.Create("widget-a")
	require.NoError(t, err)

	writeTestJPEG(t, filepath.Join(sess.InputDir(sharedRoot), "capture.jpg"))

	filename := "capture.jpg"
	result, err := c.Inspect(context.Background(), sess.ID, ImageRef{Filename: &filename}, nil, nil)
	require.NoError(t, err)

	require.Len(t, result.RoiResults, 2)
	assert.True(t, result.OverallResult.Passed)
	assert.Equal(t, 2, result.OverallResult.TotalRois)

	// Inspection must release the busy flag afterward.
	_, err = c.Sessions.BeginInspection(sess.ID)
	assert.NoError(t, err)
}

func TestInspect_FromInlineBase64(t *testing.T) {
	c, _ := setupCoordinator(t)
	sess, err := c.Sessions.Create("widget-a")
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "tmp.jpg")
	writeTestJPEG(t, tmp)
	raw, err := os.ReadFile(tmp)
	require.NoError(t, err)
	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	result, err := c.Inspect(context.Background(), sess.ID, ImageRef{Inline: &encoded}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, result.RoiResults, 2)
}

func TestInspect_BothOrNeitherImageFormPresentIsInvalidRequest(t *testing.T) {
	c, _ := setupCoordinator(t)
	sess, err := c.Sessions.Create("widget-a")
	require.NoError(t, err)

	_, err = c.Inspect(context.Background(), sess.ID, ImageRef{}, nil, nil)
	require.Error(t, err)
	var invalid *InvalidRequest
	assert.ErrorAs(t, err, &invalid)

	name, inline := "capture.jpg", "aGVsbG8="
	_, err = c.Inspect(context.Background(), sess.ID, ImageRef{Filename: &name, Inline: &inline}, nil, nil)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalid)

	// The busy flag must have been released even on this early failure.
	_, err = c.Sessions.BeginInspection(sess.ID)
	assert.NoError(t, err)
}

func TestInspect_UnknownSessionReturnsNotFound(t *testing.T) {
	c, _ := setupCoordinator(t)
	filename := "x.jpg"
	_, err := c.Inspect(context.Background(), "missing", ImageRef{Filename: &filename}, nil, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestProcessGrouped_FiltersByFocusExposureAndAggregatesOnce(t *testing.T) {
	c, sharedRoot := setupCoordinator(t)
	sess, err := c.Sessions.Create("widget-a")
	require.NoError(t, err)

	writeTestJPEG(t, filepath.Join(sess.InputDir(sharedRoot), "g1.jpg"))
	writeTestJPEG(t, filepath.Join(sess.InputDir(sharedRoot), "g2.jpg"))

	f1, f2 := "g1.jpg", "g2.jpg"
	groups := []Group{
		{Focus: 305, Exposure: 3000, Image: ImageRef{Filename: &f1}},
		{Focus: 999, Exposure: 9999, Image: ImageRef{Filename: &f2}}, // matches no ROI
	}

	result, groupResults, err := c.ProcessGrouped(context.Background(), sess.ID, "widget-a", groups, nil)
	require.NoError(t, err)

	// Both ROIs are (focus=305, exposure=3000), so only the first group
	// contributes results; the second group's image filters to zero ROIs.
	assert.Len(t, result.RoiResults, 2)

	require.Len(t, groupResults, 2)
	assert.Equal(t, 2, groupResults[0].TotalRois)
	assert.Equal(t, 0, groupResults[1].TotalRois)
}

func TestProcessGrouped_ExplicitROIListIntersectsNotOverrides(t *testing.T) {
	c, sharedRoot := setupCoordinator(t)
	sess, err := c.Sessions.Create("widget-a")
	require.NoError(t, err)
	writeTestJPEG(t, filepath.Join(sess.InputDir(sharedRoot), "g1.jpg"))

	f1 := "g1.jpg"
	groups := []Group{
		{Focus: 305, Exposure: 3000, Image: ImageRef{Filename: &f1}, ROIIDs: []int{1, 99}},
	}

	result, groupResults, err := c.ProcessGrouped(context.Background(), sess.ID, "widget-a", groups, nil)
	require.NoError(t, err)

	// idx 99 doesn't exist in the config and idx 2 is excluded by the
	// explicit list, so only idx 1 survives the intersection.
	require.Len(t, result.RoiResults, 1)
	assert.Equal(t, 1, result.RoiResults[0].RoiID)

	require.Len(t, groupResults, 1)
	assert.Equal(t, []int{1}, groupResults[0].ROIIDs)
}

func TestDeviceSummaries_SerializeWithStringKeys(t *testing.T) {
	c, sharedRoot := setupCoordinator(t)
	sess, err := c.Sessions.Create("widget-a")
	require.NoError(t, err)
	writeTestJPEG(t, filepath.Join(sess.InputDir(sharedRoot), "capture.jpg"))

	filename := "capture.jpg"
	result, err := c.Inspect(context.Background(), sess.ID, ImageRef{Filename: &filename}, nil, nil)
	require.NoError(t, err)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	summaries, ok := decoded["device_summaries"].(map[string]interface{})
	require.True(t, ok)
	_, hasDeviceOne := summaries["1"]
	assert.True(t, hasDeviceOne)
}
