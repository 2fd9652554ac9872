package capability

import (
	"context"
	"image"
	"strings"
)

// Provider is the pluggable OCR engine contract; Gemini and Mistral
// backends implement it (ocr_gemini.go, ocr_mistral.go), and NoOpProvider
// is the always-unavailable fallback (§4.2.3, §9 "capability plugins").
type Provider interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Name() string
}

// OCRBackend implements §4.2.3: decorate the recognized text against
// expected_text and classify pass/fail. A Fallback provider is tried if
// the primary fails with a retryable BackendError, generalizing the
// teacher's two-provider fallback (SPEC_FULL §12).
type OCRBackend struct {
	Primary  Provider
	Fallback Provider
}

func NewOCRBackend(primary, fallback Provider) *OCRBackend {
	return &OCRBackend{Primary: primary, Fallback: fallback}
}

func (o *OCRBackend) Run(ctx context.Context, cropped image.Image, params Params) (Result, error) {
	if o.Primary == nil {
		return Result{Passed: false, Error: ErrCapabilityUnavailable}, nil
	}

	raw, err := o.Primary.Recognize(ctx, cropped)
	if err != nil {
		if o.Fallback != nil && isRetryable(err) {
			raw, err = o.Fallback.Recognize(ctx, cropped)
		}
		if err != nil {
			return Result{Passed: false, Error: err.Error()}, nil
		}
	}

	raw = strings.TrimSpace(raw)
	text, passed := decorateAndClassify(raw, params.ExpectedText)
	return Result{Passed: passed, Text: text}, nil
}

func isRetryable(err error) bool {
	var be *BackendError
	if ok := asBackendError(err, &be); ok {
		return be.Retryable
	}
	return false
}

func asBackendError(err error, target **BackendError) bool {
	for err != nil {
		if be, ok := err.(*BackendError); ok {
			*target = be
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// decorateAndClassify implements §4.2.3's text decoration and the
// Open-Question #3 whitespace-normalization decision (SPEC_FULL §13):
// runs of whitespace collapse to a single space, both sides trimmed,
// before the case-insensitive substring comparison.
func decorateAndClassify(raw string, expected *string) (string, bool) {
	if expected == nil || *expected == "" {
		return raw, raw != ""
	}

	normalizedRaw := collapseWhitespace(raw)
	normalizedExpected := collapseWhitespace(*expected)

	if strings.Contains(strings.ToLower(normalizedRaw), strings.ToLower(normalizedExpected)) {
		text := raw + "  [PASS: Contains '" + *expected + "']"
		return text, true
	}
	text := raw + "  [FAIL: Expected '" + *expected + "', detected '" + raw + "']"
	return text, false
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// NoOpProvider always reports unavailable; wired in when OCR_PROVIDER is
// unset or unknown.
type NoOpProvider struct{}

func (NoOpProvider) Name() string { return "noop" }
func (NoOpProvider) Recognize(context.Context, image.Image) (string, error) {
	return "", &BackendError{Category: ErrCapabilityUnavailable, Retryable: false}
}
