// Package schema publishes the canonical ROI/result structures and their
// semver-like version strings so clients can self-adapt across upgrades
// (§4.10).
package schema

const (
	ROIVersion    = "3.0"
	ResultVersion = "2.0"
)

// Field describes one canonical ROI or result field for machine
// consumption.
type Field struct {
	Position    int      `json:"position,omitempty"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description"`
}

// ROISchema describes the canonical 11-field ROI record plus the legacy
// widths still accepted on load.
type ROISchema struct {
	Version      string   `json:"version"`
	Fields       []Field  `json:"fields"`
	LegacyWidths []Width  `json:"legacy_widths"`
}

// Width documents one backward-compatible legacy tuple width and the
// defaults applied when upgrading a row of that width.
type Width struct {
	Width       int    `json:"width"`
	Description string `json:"description"`
}

// ROI returns the current ROI schema document (§3, §12 "schema version
// negotiation detail").
func ROI() ROISchema {
	return ROISchema{
		Version: ROIVersion,
		Fields: []Field{
			{Position: 0, Name: "idx", Type: "int", Required: true, Description: "positive integer, unique per product; identifies golden directory"},
			{Position: 1, Name: "type", Type: "enum", Required: true, Enum: []string{"Barcode=1", "Compare=2", "OCR=3", "Color=4"}, Description: "dispatches pipeline"},
			{Position: 2, Name: "coords", Type: "[4]int", Required: true, Description: "x1,y1,x2,y2 pixel rect; x1<x2, y1<y2"},
			{Position: 3, Name: "focus", Type: "int", Required: true, Description: "capture group key"},
			{Position: 4, Name: "exposure", Type: "int", Required: true, Description: "capture group key, microseconds"},
			{Position: 5, Name: "ai_threshold", Type: "float", Required: false, Description: "required iff type=Compare; typical 0.9"},
			{Position: 6, Name: "feature_method", Type: "enum", Required: false, Enum: []string{"deep_cnn", "keypoint_local", "keypoint_binary", "generic", "barcode", "ocr", "none"}, Description: "selects capability variant"},
			{Position: 7, Name: "rotation", Type: "enum", Required: false, Enum: []string{"0", "90", "180", "270"}, Description: "applied before capability; mainly OCR"},
			{Position: 8, Name: "device_location", Type: "int", Required: false, Description: "groups ROIs by physical device"},
			{Position: 9, Name: "expected_text", Type: "string", Required: false, Description: "optional OCR validator"},
			{Position: 10, Name: "is_device_barcode", Type: "bool", Required: false, Description: "marks primary barcode of device; at most one true per device_location"},
		},
		LegacyWidths: []Width{
			{Width: 3, Description: "idx,type,coords; all remaining fields default per type"},
			{Width: 4, Description: "+ focus"},
			{Width: 5, Description: "+ exposure"},
			{Width: 6, Description: "+ ai_threshold (kept for compare; dropped for other types)"},
			{Width: 7, Description: "+ feature_method"},
			{Width: 8, Description: "+ rotation"},
			{Width: 9, Description: "+ device_location"},
			{Width: 10, Description: "+ expected_text"},
			{Width: 11, Description: "canonical: + is_device_barcode"},
		},
	}
}

// ResultSchema describes the top-level Result response shape.
type ResultSchema struct {
	Version string  `json:"version"`
	Fields  []Field `json:"fields"`
}

// Result returns the current result schema document (§6).
func Result() ResultSchema {
	return ResultSchema{
		Version: ResultVersion,
		Fields: []Field{
			{Name: "roi_results", Type: "[]ROIResult", Required: true, Description: "flat, stably sorted by idx"},
			{Name: "device_summaries", Type: "map[string]DeviceSummary", Required: true, Description: "integer device ids serialize as string keys"},
			{Name: "overall_result", Type: "OverallResult", Required: true, Description: "passed = failed_rois=0 and total_rois>0"},
			{Name: "processing_time", Type: "float", Required: true, Description: "seconds"},
			{Name: "timestamp", Type: "int", Required: false, Description: "unix seconds"},
		},
	}
}

// Versions returns the {roi, result} version pair for a single
// lightweight /schema/version endpoint.
func Versions() map[string]string {
	return map[string]string{"roi": ROIVersion, "result": ResultVersion}
}
