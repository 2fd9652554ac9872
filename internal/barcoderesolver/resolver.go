package barcoderesolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bosocmputer/visual-inspector/internal/inspection"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

// NA is returned for a device with no barcode source at all (priority 4).
const NA = "N/A"

// DeviceBarcodes is the normalized client-supplied device_id -> barcode
// map. The wire form may arrive as either a JSON object or a list of
// {device_id, barcode} pairs; UnmarshalJSON normalizes both to this map.
type DeviceBarcodes map[int]string

func (d *DeviceBarcodes) UnmarshalJSON(data []byte) error {
	var asMap map[string]string
	if err := json.Unmarshal(data, &asMap); err == nil {
		out := make(DeviceBarcodes, len(asMap))
		for k, v := range asMap {
			var id int
			if _, err := fmt.Sscanf(k, "%d", &id); err != nil {
				return fmt.Errorf("device_barcodes: non-numeric device id %q", k)
			}
			out[id] = v
		}
		*d = out
		return nil
	}

	var asList []struct {
		DeviceID int    `json:"device_id"`
		Barcode  string `json:"barcode"`
	}
	if err := json.Unmarshal(data, &asList); err != nil {
		return fmt.Errorf("device_barcodes: neither map nor list form: %w", err)
	}
	out := make(DeviceBarcodes, len(asList))
	for _, e := range asList {
		out[e.DeviceID] = e.Barcode
	}
	*d = out
	return nil
}

// Request bundles every barcode source the resolver can draw on for one
// resolution pass (§4.6(b)).
type Request struct {
	ROIResults          []inspection.ROIResult
	ROIsByIdx           map[int]roi.ROI
	DeviceIDs           []int
	ClientDeviceBarcodes DeviceBarcodes
	LegacyDeviceBarcode *string
}

// ResolveAll fills device_summaries[d].barcode for every device_id using
// the four-priority rule, running the external linking call (a) only on
// values that actually reach a priority other than 4.
//
// Grouped-inspection invariant: callers must invoke this once over the
// merged result set of all capture-group passes, never per pass, or a
// later pass's lower-priority barcode could overwrite an earlier pass's
// priority-0 barcode.
func ResolveAll(ctx context.Context, linker Linker, req Request) map[int]string {
	if linker == nil {
		linker = NoOpLinker{}
	}

	out := make(map[int]string, len(req.DeviceIDs))
	for _, d := range req.DeviceIDs {
		raw, ok := resolveOne(d, req)
		if !ok {
			out[d] = NA
			continue
		}
		out[d] = linker.Link(ctx, raw)
	}
	return out
}

// resolveOne applies priorities 0-3 for a single device and reports
// whether any source supplied a value.
func resolveOne(deviceID int, req Request) (string, bool) {
	// Priority 0: an ROI result whose config marks is_device_barcode=true.
	for _, res := range req.ROIResults {
		if res.DeviceID != deviceID || res.RoiTypeName != roi.Barcode.Name() {
			continue
		}
		cfg, ok := req.ROIsByIdx[res.RoiID]
		if !ok || cfg.IsDeviceBarcode == nil || !*cfg.IsDeviceBarcode {
			continue
		}
		if len(res.BarcodeValues) > 0 && res.BarcodeValues[0] != "" {
			return res.BarcodeValues[0], true
		}
	}

	// Priority 1: first non-empty value from any Barcode ROI on the device.
	for _, res := range req.ROIResults {
		if res.DeviceID != deviceID || res.RoiTypeName != roi.Barcode.Name() {
			continue
		}
		if len(res.BarcodeValues) > 0 && res.BarcodeValues[0] != "" {
			return res.BarcodeValues[0], true
		}
	}

	// Priority 2: client-provided device_barcodes[d].
	if req.ClientDeviceBarcodes != nil {
		if v, ok := req.ClientDeviceBarcodes[deviceID]; ok && v != "" {
			return v, true
		}
	}

	// Priority 3: legacy singleton applied uniformly.
	if req.LegacyDeviceBarcode != nil && *req.LegacyDeviceBarcode != "" {
		return *req.LegacyDeviceBarcode, true
	}

	return "", false
}
