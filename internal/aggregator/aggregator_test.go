package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/visual-inspector/internal/inspection"
)

func roiResult(id, device int, passed bool) inspection.ROIResult {
	return inspection.ROIResult{RoiID: id, DeviceID: device, Passed: passed, RoiTypeName: "color"}
}

func TestAggregate_GroupsByDeviceAndSortsByIdx(t *testing.T) {
	results := []inspection.ROIResult{
		roiResult(3, 1, true),
		roiResult(1, 1, true),
		roiResult(2, 1, false),
		roiResult(5, 2, true),
	}

	summaries, overall, err := Aggregate(results)
	require.NoError(t, err)

	dev1 := summaries[1]
	assert.Equal(t, 3, dev1.TotalRois)
	assert.Equal(t, 2, dev1.PassedRois)
	assert.Equal(t, 1, dev1.FailedRois)
	assert.False(t, dev1.DevicePassed)
	require.Len(t, dev1.Results, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{dev1.Results[0].RoiID, dev1.Results[1].RoiID, dev1.Results[2].RoiID})

	dev2 := summaries[2]
	assert.True(t, dev2.DevicePassed)

	assert.Equal(t, 4, overall.TotalRois)
	assert.Equal(t, 3, overall.PassedRois)
	assert.Equal(t, 1, overall.FailedRois)
	assert.False(t, overall.Passed)
}

func TestAggregate_AllPassedIsOverallPassed(t *testing.T) {
	results := []inspection.ROIResult{roiResult(1, 1, true), roiResult(2, 1, true)}
	_, overall, err := Aggregate(results)
	require.NoError(t, err)
	assert.True(t, overall.Passed)
}

func TestAggregate_EmptyResultsIsNotOverallPassed(t *testing.T) {
	_, overall, err := Aggregate(nil)
	require.NoError(t, err)
	assert.False(t, overall.Passed, "empty total must not count as passed (total>0 required)")
	assert.Equal(t, 0, overall.TotalRois)
}

func TestAggregate_DeviceSummaryBarcodeDefaultsToNA(t *testing.T) {
	summaries, _, err := Aggregate([]inspection.ROIResult{roiResult(1, 1, true)})
	require.NoError(t, err)
	assert.Equal(t, "N/A", summaries[1].Barcode)
}

func TestApplyBarcodes_FillsResolvedValuesWithoutMutatingOriginal(t *testing.T) {
	summaries, _, err := Aggregate([]inspection.ROIResult{roiResult(1, 1, true), roiResult(2, 2, true)})
	require.NoError(t, err)

	updated := ApplyBarcodes(summaries, map[int]string{1: "ABC123"})
	assert.Equal(t, "ABC123", updated[1].Barcode)
	assert.Equal(t, "N/A", updated[2].Barcode)
	assert.Equal(t, "N/A", summaries[1].Barcode, "original map must stay untouched")
}

// Property 8 (§8): aggregating a concatenated grouped-inspection result
// set must equal aggregating the union directly — grouping is order- and
// partition-independent.
func TestAggregate_GroupedConcatenationEquivalence(t *testing.T) {
	groupA := []inspection.ROIResult{roiResult(1, 1, true), roiResult(2, 1, false)}
	groupB := []inspection.ROIResult{roiResult(3, 2, true)}

	concatenated := append(append([]inspection.ROIResult{}, groupA...), groupB...)
	bulkSummaries, bulkOverall, err := Aggregate(concatenated)
	require.NoError(t, err)

	reordered := append(append([]inspection.ROIResult{}, groupB...), groupA...)
	reorderedSummaries, reorderedOverall, err := Aggregate(reordered)
	require.NoError(t, err)

	assert.Equal(t, bulkOverall, reorderedOverall)
	assert.Equal(t, len(bulkSummaries), len(reorderedSummaries))
	for id, s := range bulkSummaries {
		assert.Equal(t, s.TotalRois, reorderedSummaries[id].TotalRois)
		assert.Equal(t, s.DevicePassed, reorderedSummaries[id].DevicePassed)
	}
}
