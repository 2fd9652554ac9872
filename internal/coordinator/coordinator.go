// Package coordinator wires the session, product, dispatcher, aggregator,
// and barcode resolver together behind the two inspection entry points
// (§4.8).
package coordinator

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bosocmputer/visual-inspector/internal/aggregator"
	"github.com/bosocmputer/visual-inspector/internal/barcoderesolver"
	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/common"
	"github.com/bosocmputer/visual-inspector/internal/dispatcher"
	"github.com/bosocmputer/visual-inspector/internal/executor"
	"github.com/bosocmputer/visual-inspector/internal/inspection"
	"github.com/bosocmputer/visual-inspector/internal/product"
	"github.com/bosocmputer/visual-inspector/internal/roi"
	"github.com/bosocmputer/visual-inspector/internal/session"
)

// InvalidRequest mirrors the ClientRequest taxonomy entry (§7) for
// malformed image references and similar request-shape problems.
type InvalidRequest struct {
	Reason string
}

func (e *InvalidRequest) Error() string { return e.Reason }

// ImageRef is the sum type for "either a workspace-relative filename or
// an inline base64 payload" (§4.8 step 2). Exactly one field may be set.
type ImageRef struct {
	Filename *string
	Inline   *string // raw base64, optionally "data:...;base64," prefixed
}

// Group is one capture-group pass of a grouped inspection request
// (§4.8(ii), §6).
type Group struct {
	Focus, Exposure int
	Image           ImageRef
	ROIIDs          []int // optional explicit filter, intersected with (focus,exposure) (Open Question 2)
}

// GroupResult reports what one capture-group pass actually evaluated,
// echoed back alongside the merged Result as group_results (§6's
// grouped-inspection response: "same Result, plus session_id,
// product_name, group_results").
type GroupResult struct {
	Focus      int   `json:"focus"`
	Exposure   int   `json:"exposure"`
	ROIIDs     []int `json:"roi_ids"`
	TotalRois  int   `json:"total_rois"`
	PassedRois int   `json:"passed_rois"`
	FailedRois int   `json:"failed_rois"`
}

// Coordinator holds the wiring needed by both entry points.
type Coordinator struct {
	Sessions          *session.Manager
	SharedRoot        string
	Products          *product.Store
	Capabilities      func(cfg product.Config) executor.Capabilities
	Linker            barcoderesolver.Linker
	MaxWorkers        int
	ClientMountPrefix string
}

// Inspect implements §4.8(i): single-image inspection.
func (c *Coordinator) Inspect(ctx context.Context, sessionID string, ref ImageRef, clientBarcodes barcoderesolver.DeviceBarcodes, legacyBarcode *string) (result inspection.Result, err error) {
	start := time.Now()
	rc := common.NewRequestContext(sessionID)

	sess, err := c.Sessions.BeginInspection(sessionID)
	if err != nil {
		return inspection.Result{}, err
	}
	defer func() {
		if err != nil {
			c.Sessions.EndInspection(sessionID, nil)
			return
		}
		c.Sessions.EndInspection(sessionID, &result)
	}()

	rc.StartStep("load_image")
	img, err := loadImage(ref, sess.InputDir(c.SharedRoot))
	rc.EndStep(err)
	if err != nil {
		return inspection.Result{}, err
	}

	cfg, err := c.Products.Load(sess.ProductName)
	if err != nil {
		return inspection.Result{}, err
	}

	ws := executor.Workspace{OutputDir: sess.OutputDir(c.SharedRoot), ClientMountPrefix: c.ClientMountPrefix}
	rc.StartStep("dispatch_rois")
	roiResults := c.runROIs(ctx, cfg, img, ws, cfg.ROIs)
	rc.EndStep(nil)

	rc.StartStep("aggregate_and_resolve_barcodes")
	result, err = c.finish(ctx, roiResults, cfg, clientBarcodes, legacyBarcode, start)
	rc.EndStep(err)
	if err != nil {
		return inspection.Result{}, err
	}
	return result, nil
}

// ProcessGrouped implements §4.8(ii): grouped inspection. groupResults
// reports each capture-group pass's own ROI breakdown, separate from
// the single aggregate/barcode-resolution pass over their concatenation
// (finish's invariant of running exactly once over the merged set).
func (c *Coordinator) ProcessGrouped(ctx context.Context, sessionID, productName string, groups []Group, clientBarcodes barcoderesolver.DeviceBarcodes) (result inspection.Result, groupResults []GroupResult, err error) {
	start := time.Now()
	rc := common.NewRequestContext(sessionID)

	sess, err := c.Sessions.BeginInspection(sessionID)
	if err != nil {
		return inspection.Result{}, nil, err
	}
	defer func() {
		if err != nil {
			c.Sessions.EndInspection(sessionID, nil)
			return
		}
		c.Sessions.EndInspection(sessionID, &result)
	}()

	cfg, err := c.Products.Load(productName)
	if err != nil {
		return inspection.Result{}, nil, err
	}

	ws := executor.Workspace{OutputDir: sess.OutputDir(c.SharedRoot), ClientMountPrefix: c.ClientMountPrefix}

	var allResults []inspection.ROIResult
	groupResults = make([]GroupResult, 0, len(groups))
	for i, g := range groups {
		rc.StartStep(fmt.Sprintf("group_%d_load_and_dispatch", i))
		img, err := loadImage(g.Image, sess.InputDir(c.SharedRoot))
		if err != nil {
			rc.EndStep(err)
			return inspection.Result{}, nil, err
		}

		filtered := filterByCaptureGroup(cfg.ROIs, g.Focus, g.Exposure)
		if len(g.ROIIDs) > 0 {
			filtered = intersectByIdx(filtered, g.ROIIDs)
		}

		groupROIResults := c.runROIs(ctx, cfg, img, ws, filtered)
		allResults = append(allResults, groupROIResults...)
		groupResults = append(groupResults, summarizeGroup(g, filtered, groupROIResults))
		rc.EndStep(nil)
	}

	rc.StartStep("aggregate_and_resolve_barcodes")
	result, err = c.finish(ctx, allResults, cfg, clientBarcodes, nil, start)
	rc.EndStep(err)
	if err != nil {
		return inspection.Result{}, nil, err
	}
	return result, groupResults, nil
}

// summarizeGroup reports the (focus,exposure) pass's own pass/fail
// counts, computed from that pass's ROI results alone — independent of
// the merged aggregation finish performs once over every group.
func summarizeGroup(g Group, filtered []roi.ROI, results []inspection.ROIResult) GroupResult {
	ids := make([]int, 0, len(filtered))
	for _, r := range filtered {
		ids = append(ids, r.Idx)
	}
	passed := 0
	for _, res := range results {
		if res.Passed {
			passed++
		}
	}
	return GroupResult{
		Focus:      g.Focus,
		Exposure:   g.Exposure,
		ROIIDs:     ids,
		TotalRois:  len(results),
		PassedRois: passed,
		FailedRois: len(results) - passed,
	}
}

func (c *Coordinator) runROIs(ctx context.Context, cfg product.Config, img image.Image, ws executor.Workspace, rois []roi.ROI) []inspection.ROIResult {
	caps := c.Capabilities(cfg)

	inputs := make([]executor.Input, 0, len(rois))
	for _, r := range rois {
		inputs = append(inputs, executor.Input{
			ROI:         r,
			Image:       img,
			ProductName: cfg.Name,
			Workspace:   ws,
			ColorRanges: cfg.Colors[r.Idx],
		})
	}
	return dispatcher.Run(ctx, caps, inputs, c.MaxWorkers)
}

// finish aggregates once over the given result set and resolves
// barcodes once over the aggregated device summaries (§4.6(b)'s
// grouped-inspection invariant), regardless of whether it was called
// from a single-pass or multi-pass entry point.
func (c *Coordinator) finish(ctx context.Context, roiResults []inspection.ROIResult, cfg product.Config, clientBarcodes barcoderesolver.DeviceBarcodes, legacyBarcode *string, start time.Time) (inspection.Result, error) {
	summaries, overall, err := aggregator.Aggregate(roiResults)
	if err != nil {
		return inspection.Result{}, err
	}

	roisByIdx := make(map[int]roi.ROI, len(cfg.ROIs))
	deviceIDSet := make(map[int]struct{})
	for _, r := range cfg.ROIs {
		roisByIdx[r.Idx] = r
		deviceIDSet[r.DeviceLocation] = struct{}{}
	}
	deviceIDs := make([]int, 0, len(deviceIDSet))
	for d := range deviceIDSet {
		deviceIDs = append(deviceIDs, d)
	}
	sort.Ints(deviceIDs)

	barcodes := barcoderesolver.ResolveAll(ctx, c.Linker, barcoderesolver.Request{
		ROIResults:           roiResults,
		ROIsByIdx:            roisByIdx,
		DeviceIDs:            deviceIDs,
		ClientDeviceBarcodes: clientBarcodes,
		LegacyDeviceBarcode:  legacyBarcode,
	})
	summaries = aggregator.ApplyBarcodes(summaries, barcodes)

	jsonSummaries := make(map[string]inspection.DeviceSummary, len(summaries))
	for id, s := range summaries {
		jsonSummaries[fmt.Sprintf("%d", id)] = s
	}

	sort.SliceStable(roiResults, func(i, j int) bool { return roiResults[i].RoiID < roiResults[j].RoiID })

	return inspection.Result{
		RoiResults:      roiResults,
		DeviceSummaries: jsonSummaries,
		OverallResult:   overall,
		ProcessingTime:  time.Since(start).Seconds(),
		Timestamp:       time.Now().Unix(),
	}, nil
}

// filterByCaptureGroup keeps only ROIs matching (focus,exposure); the
// illumination context of an image captured at a different exposure
// makes evaluating a ROI defined for another capture group meaningless
// (§4.8(ii) step 2).
func filterByCaptureGroup(rois []roi.ROI, focus, exposure int) []roi.ROI {
	out := make([]roi.ROI, 0, len(rois))
	for _, r := range rois {
		if r.Focus == focus && r.Exposure == exposure {
			out = append(out, r)
		}
	}
	return out
}

// intersectByIdx applies Open Question 2's decision: an explicit
// per-group ROI-id list narrows the (focus,exposure) filter rather than
// overriding it.
func intersectByIdx(rois []roi.ROI, ids []int) []roi.ROI {
	allowed := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	out := make([]roi.ROI, 0, len(rois))
	for _, r := range rois {
		if _, ok := allowed[r.Idx]; ok {
			out = append(out, r)
		}
	}
	return out
}

// loadImage resolves exactly one of ImageRef's two forms (§4.8 step 2).
func loadImage(ref ImageRef, inputDir string) (image.Image, error) {
	hasFilename := ref.Filename != nil && *ref.Filename != ""
	hasInline := ref.Inline != nil && *ref.Inline != ""
	if hasFilename == hasInline {
		return nil, &InvalidRequest{Reason: "exactly one of image_filename or image must be present"}
	}

	if hasFilename {
		path := filepath.Join(inputDir, *ref.Filename)
		f, err := os.Open(path)
		if err != nil {
			return nil, &InvalidRequest{Reason: fmt.Sprintf("reading input image: %v", err)}
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, &InvalidRequest{Reason: fmt.Sprintf("decoding input image: %v", err)}
		}
		return img, nil
	}

	payload := *ref.Inline
	if idx := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && idx != -1 {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &InvalidRequest{Reason: fmt.Sprintf("decoding base64 image: %v", err)}
	}
	img, _, err := image.Decode(strings.NewReader(string(raw)))
	if err != nil {
		return nil, &InvalidRequest{Reason: fmt.Sprintf("decoding inline image: %v", err)}
	}
	return img, nil
}

// GoldenStoreFor resolves a per-product golden store given a product
// name; main supplies this (golden stores are rooted under
// {config_root}/products/{name}/golden_rois).
type GoldenStoreFor func(productName string) capability.GoldenStore

// NewDefaultCapabilities builds the production capability set for a
// product, wiring the compare backend to the product's golden store.
func NewDefaultCapabilities(barcodeDecoder capability.Decoder, ocr capability.Capability, goldenStoreFor GoldenStoreFor) func(product.Config) executor.Capabilities {
	return func(cfg product.Config) executor.Capabilities {
		return executor.Capabilities{
			Barcode: &capability.BarcodeBackend{Decoder: barcodeDecoder},
			OCR:     ocr,
			Color:   &capability.ColorBackend{},
			Compare: capability.NewCompareBackend(goldenStoreFor(cfg.Name), nil),
		}
	}
}
