package roi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Raw is the decoded, not-yet-validated form of one ROI row. It tolerates
// two wire shapes: a positional array (legacy width 3..11) and an object
// carrying any subset of the canonical keys. Every field is a pointer so
// "absent" and "zero value" are distinguishable, mirroring the canonical
// record's own optional fields.
type Raw struct {
	Idx             *int       `json:"idx,omitempty"`
	Type            *int       `json:"type,omitempty"`
	Coords          *[4]int    `json:"coords,omitempty"`
	Focus           *int       `json:"focus,omitempty"`
	Exposure        *int       `json:"exposure,omitempty"`
	AIThreshold     *float64   `json:"ai_threshold,omitempty"`
	FeatureMethod   *string    `json:"feature_method,omitempty"`
	Rotation        *int       `json:"rotation,omitempty"`
	DeviceLocation  *int       `json:"device_location,omitempty"`
	ExpectedText    *string    `json:"expected_text,omitempty"`
	IsDeviceBarcode *bool      `json:"is_device_barcode,omitempty"`

	width int // number of positions present, for width-range validation
}

// Width reports how many canonical positions were populated by the wire
// row (object form counts only the keys actually present).
func (r Raw) Width() int { return r.width }

type rawObject struct {
	Idx             *int     `json:"idx"`
	Type            *int     `json:"type"`
	Coords          *[4]int  `json:"coords"`
	Focus           *int     `json:"focus"`
	Exposure        *int     `json:"exposure"`
	AIThreshold     *float64 `json:"ai_threshold"`
	FeatureMethod   *string  `json:"feature_method"`
	Rotation        *int     `json:"rotation"`
	DeviceLocation  *int     `json:"device_location"`
	ExpectedText    *string  `json:"expected_text"`
	IsDeviceBarcode *bool    `json:"is_device_barcode"`
}

// UnmarshalJSON accepts either a positional array or a keyed object.
func (r *Raw) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty roi row")
	}

	switch trimmed[0] {
	case '[':
		var tuple []json.RawMessage
		if err := json.Unmarshal(trimmed, &tuple); err != nil {
			return err
		}
		return r.fromTuple(tuple)
	case '{':
		var obj rawObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		r.fromObject(obj)
		return nil
	default:
		return fmt.Errorf("roi row must be an array or object, got %q", string(trimmed[:1]))
	}
}

func (r *Raw) fromTuple(tuple []json.RawMessage) error {
	r.width = len(tuple)
	for i, raw := range tuple {
		switch i {
		case 0:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("idx: %w", err)
			}
			r.Idx = &v
		case 1:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("type: %w", err)
			}
			r.Type = &v
		case 2:
			var v [4]int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("coords: %w", err)
			}
			r.Coords = &v
		case 3:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("focus: %w", err)
			}
			r.Focus = &v
		case 4:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("exposure: %w", err)
			}
			r.Exposure = &v
		case 5:
			if string(raw) != "null" {
				var v float64
				if err := json.Unmarshal(raw, &v); err != nil {
					return fmt.Errorf("ai_threshold: %w", err)
				}
				r.AIThreshold = &v
			}
		case 6:
			if string(raw) != "null" {
				var v string
				if err := json.Unmarshal(raw, &v); err != nil {
					return fmt.Errorf("feature_method: %w", err)
				}
				r.FeatureMethod = &v
			}
		case 7:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("rotation: %w", err)
			}
			r.Rotation = &v
		case 8:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("device_location: %w", err)
			}
			r.DeviceLocation = &v
		case 9:
			if string(raw) != "null" {
				var v string
				if err := json.Unmarshal(raw, &v); err != nil {
					return fmt.Errorf("expected_text: %w", err)
				}
				r.ExpectedText = &v
			}
		case 10:
			if string(raw) != "null" {
				var v bool
				if err := json.Unmarshal(raw, &v); err != nil {
					return fmt.Errorf("is_device_barcode: %w", err)
				}
				r.IsDeviceBarcode = &v
			}
		}
	}
	return nil
}

func (r *Raw) fromObject(obj rawObject) {
	r.Idx = obj.Idx
	r.Type = obj.Type
	r.Coords = obj.Coords
	r.Focus = obj.Focus
	r.Exposure = obj.Exposure
	r.AIThreshold = obj.AIThreshold
	r.FeatureMethod = obj.FeatureMethod
	r.Rotation = obj.Rotation
	r.DeviceLocation = obj.DeviceLocation
	r.ExpectedText = obj.ExpectedText
	r.IsDeviceBarcode = obj.IsDeviceBarcode

	width := 0
	for _, present := range []bool{
		obj.Idx != nil, obj.Type != nil, obj.Coords != nil, obj.Focus != nil,
		obj.Exposure != nil, obj.AIThreshold != nil, obj.FeatureMethod != nil,
		obj.Rotation != nil, obj.DeviceLocation != nil, obj.ExpectedText != nil,
		obj.IsDeviceBarcode != nil,
	} {
		if present {
			width++
		}
	}
	// Object rows always carry at least idx/type/coords for a well-formed
	// request; width tracks populated keys so Normalize can apply the same
	// "width < 3 is invalid" rule object and tuple forms share.
	r.width = width
}

// FromCanonical builds a Raw with every field populated, used for
// Normalize(FromCanonical(r)) round-tripping and by tests constructing
// fixtures directly in Go.
func FromCanonical(r ROI) Raw {
	coords := r.Coords.Slice()
	ft := string(r.FeatureMethod)
	rot := int(r.Rotation)
	typ := int(r.Type)
	return Raw{
		Idx:             &r.Idx,
		Type:            &typ,
		Coords:          &coords,
		Focus:           &r.Focus,
		Exposure:        &r.Exposure,
		AIThreshold:     r.AIThreshold,
		FeatureMethod:   &ft,
		Rotation:        &rot,
		DeviceLocation:  &r.DeviceLocation,
		ExpectedText:    r.ExpectedText,
		IsDeviceBarcode: r.IsDeviceBarcode,
		width:           11,
	}
}
