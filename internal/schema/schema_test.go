package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestROI_HasElevenCanonicalFields(t *testing.T) {
	s := ROI()
	assert.Equal(t, "3.0", s.Version)
	assert.Len(t, s.Fields, 11)
	assert.Equal(t, "idx", s.Fields[0].Name)
	assert.Equal(t, "is_device_barcode", s.Fields[10].Name)
}

func TestROI_LegacyWidthsCoverThreeToEleven(t *testing.T) {
	s := ROI()
	assert.Len(t, s.LegacyWidths, 9)
	assert.Equal(t, 3, s.LegacyWidths[0].Width)
	assert.Equal(t, 11, s.LegacyWidths[len(s.LegacyWidths)-1].Width)
}

func TestResult_VersionMatchesPublishedConstant(t *testing.T) {
	r := Result()
	assert.Equal(t, "2.0", r.Version)
}

func TestVersions_ReturnsBothVersionStrings(t *testing.T) {
	v := Versions()
	assert.Equal(t, "3.0", v["roi"])
	assert.Equal(t, "2.0", v["result"])
}
