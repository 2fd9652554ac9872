// Package aggregator groups flat ROI results into per-device and overall
// summaries and enforces the §3 count invariants (§4.9).
package aggregator

import (
	"fmt"
	"sort"

	"github.com/bosocmputer/visual-inspector/internal/inspection"
)

// InternalError marks an invariant violation that should be
// unreachable in correct operation (§4.9 step 3, Property 3).
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal_error: %s", e.Reason)
}

// Aggregate groups a flat, any-order roi_results slice by device_location
// and computes the overall verdict (§4.9). The barcode field of each
// DeviceSummary is left at "N/A"; the caller fills it in via the barcode
// resolver, which must run once over the returned map, not per group.
func Aggregate(results []inspection.ROIResult) (map[int]inspection.DeviceSummary, inspection.OverallResult, error) {
	byDevice := make(map[int][]inspection.ROIResult)
	for _, r := range results {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	summaries := make(map[int]inspection.DeviceSummary, len(byDevice))
	for deviceID, rs := range byDevice {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].RoiID < rs[j].RoiID })

		passed, failed := 0, 0
		for _, r := range rs {
			if r.Passed {
				passed++
			} else {
				failed++
			}
		}
		total := len(rs)
		if passed+failed != total {
			return nil, inspection.OverallResult{}, &InternalError{
				Reason: fmt.Sprintf("device %d: passed(%d)+failed(%d) != total(%d)", deviceID, passed, failed, total),
			}
		}

		summaries[deviceID] = inspection.DeviceSummary{
			TotalRois:    total,
			PassedRois:   passed,
			FailedRois:   failed,
			DevicePassed: failed == 0,
			Barcode:      "N/A",
			Results:      rs,
		}
	}

	overallTotal, overallPassed, overallFailed := 0, 0, 0
	for _, s := range summaries {
		overallTotal += s.TotalRois
		overallPassed += s.PassedRois
		overallFailed += s.FailedRois
	}
	if overallPassed+overallFailed != overallTotal {
		return nil, inspection.OverallResult{}, &InternalError{
			Reason: fmt.Sprintf("overall: passed(%d)+failed(%d) != total(%d)", overallPassed, overallFailed, overallTotal),
		}
	}

	overall := inspection.OverallResult{
		Passed:     overallFailed == 0 && overallTotal > 0,
		TotalRois:  overallTotal,
		PassedRois: overallPassed,
		FailedRois: overallFailed,
	}
	return summaries, overall, nil
}

// ApplyBarcodes copies resolved per-device barcodes into the summaries
// map, returning a new map so the caller's aggregation stays immutable
// until resolution has actually run.
func ApplyBarcodes(summaries map[int]inspection.DeviceSummary, barcodes map[int]string) map[int]inspection.DeviceSummary {
	out := make(map[int]inspection.DeviceSummary, len(summaries))
	for deviceID, s := range summaries {
		if b, ok := barcodes[deviceID]; ok {
			s.Barcode = b
		}
		out[deviceID] = s
	}
	return out
}
