package roi

import "fmt"

// defaultFeatureMethod returns the type's default feature_method, used both
// when the field is absent and when it is present but incompatible with the
// row's type (§4.1 step 5).
func defaultFeatureMethod(t Type) FeatureMethod {
	switch t {
	case Barcode:
		return MethodBarcode
	case Compare:
		return DeepCNN
	case OCR:
		return MethodOCR
	case Color:
		return MethodNone
	}
	return MethodNone
}

// compatibleFeatureMethods lists which methods are legal for a type; an
// incompatible value present on the row is replaced with the type default
// rather than rejected, matching the legacy loader's tolerant behavior.
func compatibleFeatureMethods(t Type) map[FeatureMethod]bool {
	switch t {
	case Compare:
		return map[FeatureMethod]bool{DeepCNN: true, KeypointLocal: true, KeypointBinary: true, Generic: true}
	case Barcode:
		return map[FeatureMethod]bool{MethodBarcode: true}
	case OCR:
		return map[FeatureMethod]bool{MethodOCR: true}
	case Color:
		return map[FeatureMethod]bool{MethodNone: true}
	}
	return nil
}

// Normalize upgrades a raw ROI row (legacy tuple width 3..11, or an object
// with any subset of canonical keys) into the fully populated canonical
// form. It is idempotent: Normalize(FromCanonical(Normalize(r))) always
// equals Normalize(r).
func Normalize(raw Raw) (ROI, error) {
	if raw.width < 3 {
		return ROI{}, &InvalidROI{Reason: fmt.Sprintf("width %d is below the minimum of 3", raw.width)}
	}
	if raw.width > 11 {
		return ROI{}, &InvalidROI{Reason: fmt.Sprintf("width %d exceeds the canonical 11 fields", raw.width)}
	}
	if raw.Idx == nil {
		return ROI{}, &InvalidROI{Reason: "idx is required"}
	}
	if raw.Type == nil {
		return ROI{}, &InvalidROI{Reason: "type is required"}
	}
	t := Type(*raw.Type)
	if !t.Valid() {
		return ROI{}, &InvalidROI{Reason: fmt.Sprintf("type %d is not one of {1,2,3,4}", *raw.Type)}
	}
	if raw.Coords == nil {
		return ROI{}, &InvalidROI{Reason: "coords is required"}
	}

	c := Coords{X1: raw.Coords[0], Y1: raw.Coords[1], X2: raw.Coords[2], Y2: raw.Coords[3]}
	if !c.valid() {
		return ROI{}, &InvalidROI{Reason: fmt.Sprintf("coords %v is not a valid non-negative rect with x1<x2, y1<y2", raw.Coords)}
	}

	out := ROI{
		Idx:    *raw.Idx,
		Type:   t,
		Coords: c,
	}

	if raw.Focus != nil {
		out.Focus = *raw.Focus
	} else {
		out.Focus = 305
	}
	if raw.Exposure != nil {
		out.Exposure = *raw.Exposure
	} else {
		out.Exposure = 3000
	}
	if raw.Rotation != nil {
		r := Rotation(*raw.Rotation)
		if !r.Valid() {
			return ROI{}, &InvalidROI{Reason: fmt.Sprintf("rotation %d is not one of {0,90,180,270}", *raw.Rotation)}
		}
		out.Rotation = r
	} else {
		out.Rotation = Rotate0
	}
	if raw.DeviceLocation != nil {
		out.DeviceLocation = *raw.DeviceLocation
	} else {
		out.DeviceLocation = 1
	}

	// ai_threshold: absent unless type=Compare (§3 invariant 1).
	if t == Compare {
		if raw.AIThreshold != nil {
			v := *raw.AIThreshold
			out.AIThreshold = &v
		} else {
			out.AIThreshold = floatPtr(0.9)
		}
	}

	// feature_method: coerce, falling back to the type default if absent
	// or incompatible.
	fm := defaultFeatureMethod(t)
	if raw.FeatureMethod != nil {
		candidate := FeatureMethod(*raw.FeatureMethod)
		if compatibleFeatureMethods(t)[candidate] {
			fm = candidate
		}
	}
	out.FeatureMethod = fm

	// expected_text: absent unless type=OCR.
	if t == OCR && raw.ExpectedText != nil {
		v := *raw.ExpectedText
		out.ExpectedText = &v
	}

	// is_device_barcode: absent unless type=Barcode.
	if t == Barcode && raw.IsDeviceBarcode != nil {
		v := *raw.IsDeviceBarcode
		out.IsDeviceBarcode = &v
	}

	return out, nil
}

// ValidateSet checks idx-uniqueness and the at-most-one-device-barcode-
// per-device rule across a product's normalized ROI set (§4.1).
func ValidateSet(rois []ROI) error {
	seenIdx := make(map[int]bool, len(rois))
	deviceBarcodeOwner := make(map[int]int) // device_location -> idx that claimed it

	for _, r := range rois {
		if seenIdx[r.Idx] {
			return &InvalidConfig{Reason: fmt.Sprintf("duplicate idx %d", r.Idx)}
		}
		seenIdx[r.Idx] = true

		if r.Type == Barcode && r.IsDeviceBarcode != nil && *r.IsDeviceBarcode {
			if owner, ok := deviceBarcodeOwner[r.DeviceLocation]; ok {
				return &InvalidConfig{Reason: fmt.Sprintf(
					"device_location %d has more than one is_device_barcode roi (idx %d and %d)",
					r.DeviceLocation, owner, r.Idx)}
			}
			deviceBarcodeOwner[r.DeviceLocation] = r.Idx
		}
	}
	return nil
}
