// Package inspection defines the wire-level result shapes shared by the
// ROI executor, the aggregator, and the HTTP layer (§6 "Result shape").
package inspection

// ROIResult is one entry of roi_results[]. Only the fields relevant to
// RoiTypeName are populated; the rest are left at their zero value and
// omitted from JSON.
type ROIResult struct {
	RoiID           int     `json:"roi_id"`
	DeviceID        int     `json:"device_id"`
	RoiTypeName     string  `json:"roi_type_name"`
	Passed          bool    `json:"passed"`
	Coordinates     [4]int  `json:"coordinates"`
	RoiImagePath    *string `json:"roi_image_path"`
	GoldenImagePath *string `json:"golden_image_path"`
	Error           string  `json:"error,omitempty"`

	// barcode
	BarcodeValues []string `json:"barcode_values,omitempty"`

	// compare
	MatchResult  string   `json:"match_result,omitempty"`
	AISimilarity *float64 `json:"ai_similarity,omitempty"`

	// shared by compare (0..1) and color (0..100); the meaning is
	// determined by RoiTypeName.
	Threshold *float64 `json:"threshold,omitempty"`

	// ocr
	OCRText string `json:"ocr_text,omitempty"`

	// color
	DetectedColor      string   `json:"detected_color,omitempty"`
	MatchPercentage    *float64 `json:"match_percentage,omitempty"`
	MatchPercentageRaw *float64 `json:"match_percentage_raw,omitempty"`
	DominantColor      *[3]int  `json:"dominant_color,omitempty"`
}

// DeviceSummary is one entry of device_summaries (§3, §6).
type DeviceSummary struct {
	TotalRois    int         `json:"total_rois"`
	PassedRois   int         `json:"passed_rois"`
	FailedRois   int         `json:"failed_rois"`
	DevicePassed bool        `json:"device_passed"`
	Barcode      string      `json:"barcode"`
	Results      []ROIResult `json:"results"`
}

// OverallResult is overall_result (§3, §6).
type OverallResult struct {
	Passed     bool `json:"passed"`
	TotalRois  int  `json:"total_rois"`
	PassedRois int  `json:"passed_rois"`
	FailedRois int  `json:"failed_rois"`
}

// Result is the full bit-exact response shape for /inspect and
// /process_grouped_inspection (§6).
type Result struct {
	RoiResults      []ROIResult              `json:"roi_results"`
	DeviceSummaries map[string]DeviceSummary `json:"device_summaries"`
	OverallResult   OverallResult            `json:"overall_result"`
	ProcessingTime  float64                  `json:"processing_time"`
	Timestamp       int64                    `json:"timestamp,omitempty"`
}
