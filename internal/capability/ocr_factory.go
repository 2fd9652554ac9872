package capability

import (
	"time"

	"github.com/bosocmputer/visual-inspector/configs"
)

// NewOCRBackendFromConfig builds the OCR backend with a primary provider
// selected by configs.OCR_PROVIDER and the opposite real provider wired in
// as fallback, generalizing the teacher's
// CreateOCRProviderWithFallback (SPEC_FULL §12).
func NewOCRBackendFromConfig() *OCRBackend {
	primary := newProvider(configs.OCR_PROVIDER)
	fallback := newProvider(oppositeProvider(configs.OCR_PROVIDER))
	return NewOCRBackend(primary, fallback)
}

func newProvider(name string) Provider {
	switch name {
	case "gemini":
		return NewGeminiProvider(configs.GEMINI_API_KEY, configs.OCR_MODEL_NAME)
	case "mistral":
		timeout := time.Duration(configs.OCR_TIMEOUT_SECONDS) * time.Second
		return NewMistralProvider(configs.MISTRAL_API_KEY, configs.MISTRAL_MODEL_NAME, timeout)
	default:
		return NoOpProvider{}
	}
}

func oppositeProvider(name string) string {
	switch name {
	case "gemini":
		return "mistral"
	case "mistral":
		return "gemini"
	default:
		return "noop"
	}
}
