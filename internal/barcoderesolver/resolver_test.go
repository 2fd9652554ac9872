package barcoderesolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/visual-inspector/internal/inspection"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// Property 6 (§8): priority ordering is monotonic — a higher-priority
// source must win even when lower-priority sources are also present.
func TestResolveAll_PriorityOrdering(t *testing.T) {
	isDeviceBarcode := boolp(true)
	notDeviceBarcode := boolp(false)

	cases := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "priority 0 beats everything",
			req: Request{
				DeviceIDs: []int{1},
				ROIResults: []inspection.ROIResult{
					{RoiID: 10, DeviceID: 1, RoiTypeName: "barcode", BarcodeValues: []string{"P0VAL"}},
					{RoiID: 11, DeviceID: 1, RoiTypeName: "barcode", BarcodeValues: []string{"P1VAL"}},
				},
				ROIsByIdx: map[int]roi.ROI{
					10: {Idx: 10, Type: roi.Barcode, IsDeviceBarcode: isDeviceBarcode},
					11: {Idx: 11, Type: roi.Barcode, IsDeviceBarcode: notDeviceBarcode},
				},
				ClientDeviceBarcodes: DeviceBarcodes{1: "P2VAL"},
				LegacyDeviceBarcode:  strp("P3VAL"),
			},
			want: "P0VAL",
		},
		{
			name: "priority 1 beats client and legacy",
			req: Request{
				DeviceIDs: []int{1},
				ROIResults: []inspection.ROIResult{
					{RoiID: 11, DeviceID: 1, RoiTypeName: "barcode", BarcodeValues: []string{"P1VAL"}},
				},
				ROIsByIdx: map[int]roi.ROI{
					11: {Idx: 11, Type: roi.Barcode, IsDeviceBarcode: notDeviceBarcode},
				},
				ClientDeviceBarcodes: DeviceBarcodes{1: "P2VAL"},
				LegacyDeviceBarcode:  strp("P3VAL"),
			},
			want: "P1VAL",
		},
		{
			name: "priority 2 beats legacy",
			req: Request{
				DeviceIDs:            []int{1},
				ClientDeviceBarcodes: DeviceBarcodes{1: "P2VAL"},
				LegacyDeviceBarcode:  strp("P3VAL"),
			},
			want: "P2VAL",
		},
		{
			name: "priority 3 legacy used when nothing else present",
			req: Request{
				DeviceIDs:           []int{1},
				LegacyDeviceBarcode: strp("P3VAL"),
			},
			want: "P3VAL",
		},
		{
			name: "priority 4 literal N/A when no source at all",
			req: Request{
				DeviceIDs: []int{1},
			},
			want: NA,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveAll(context.Background(), NoOpLinker{}, tc.req)
			assert.Equal(t, tc.want, got[1])
		})
	}
}

func TestResolveAll_RunsLinkingOnResolvedValuesOnly(t *testing.T) {
	linker := &recordingLinker{}
	req := Request{
		DeviceIDs:           []int{1, 2},
		LegacyDeviceBarcode: strp("SHARED"),
	}
	out := ResolveAll(context.Background(), linker, req)

	require.Equal(t, "LINKED:SHARED", out[1])
	require.Equal(t, "LINKED:SHARED", out[2])
	assert.ElementsMatch(t, []string{"SHARED", "SHARED"}, linker.seen)
}

func TestResolveAll_NALiteralNeverPassesThroughLinking(t *testing.T) {
	linker := &recordingLinker{}
	out := ResolveAll(context.Background(), linker, Request{DeviceIDs: []int{7}})

	assert.Equal(t, NA, out[7])
	assert.Empty(t, linker.seen)
}

type recordingLinker struct {
	seen []string
}

func (r *recordingLinker) Link(_ context.Context, raw string) string {
	r.seen = append(r.seen, raw)
	return "LINKED:" + raw
}

// Property 7 (§8): quote-stripping of the linking service response body.
func TestParseLinkingResponse_QuoteStripping(t *testing.T) {
	cases := []struct {
		body     string
		wantVal  string
		wantOK   bool
	}{
		{`"X"`, "X", true},
		{`X`, "X", true},
		{`  "X"  `, "X", true},
		{`"null"`, "", false},
		{`null`, "", false},
		{``, "", false},
		{`   `, "", false},
	}
	for _, tc := range cases {
		v, ok := parseLinkingResponse(tc.body)
		assert.Equal(t, tc.wantOK, ok, "body=%q", tc.body)
		assert.Equal(t, tc.wantVal, v, "body=%q", tc.body)
	}
}

func TestDeviceBarcodes_UnmarshalMapAndListForms(t *testing.T) {
	var fromMap DeviceBarcodes
	require.NoError(t, fromMap.UnmarshalJSON([]byte(`{"1":"AAA","2":"BBB"}`)))
	assert.Equal(t, DeviceBarcodes{1: "AAA", 2: "BBB"}, fromMap)

	var fromList DeviceBarcodes
	require.NoError(t, fromList.UnmarshalJSON([]byte(`[{"device_id":1,"barcode":"AAA"},{"device_id":2,"barcode":"BBB"}]`)))
	assert.Equal(t, DeviceBarcodes{1: "AAA", 2: "BBB"}, fromList)
}
