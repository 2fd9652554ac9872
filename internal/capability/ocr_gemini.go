package capability

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bosocmputer/visual-inspector/internal/ratelimit"
)

// GeminiProvider recognizes text in a cropped ROI using Google's Gemini
// multimodal model, grounded on the teacher's ProcessPureOCR pipeline:
// encode the image, build a plain-text-extraction prompt, call the model
// with retry/backoff, and return the raw response text. Calls are bounded
// by a token-bucket limiter so a burst of ROI dispatches can't exceed
// Gemini's requests-per-minute ceiling.
type GeminiProvider struct {
	apiKey  string
	model   string
	retry   RetryConfig
	limiter *ratelimit.RateLimiter
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		retry:   DefaultRetryConfig(),
		limiter: ratelimit.NewRateLimiter(12, 5*time.Second),
	}
}

func (GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Recognize(ctx context.Context, img image.Image) (string, error) {
	if g.apiKey == "" {
		return "", &BackendError{Category: "unavailable", Retryable: false, Err: fmt.Errorf("GEMINI_API_KEY not configured")}
	}
	if err := g.limiter.WaitContext(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return "", fmt.Errorf("encoding crop for gemini: %w", err)
	}
	imgBytes := buf.Bytes()

	return withRetry(ctx, g.retry, func() (string, error) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
		if err != nil {
			return "", fmt.Errorf("creating gemini client: %w", err)
		}
		defer client.Close()

		model := client.GenerativeModel(g.model)
		model.SetTemperature(0)

		resp, err := model.GenerateContent(ctx,
			genai.ImageData("jpeg", imgBytes),
			genai.Text("Read and return only the literal text visible in this image crop. "+
				"Return the text exactly as printed, with no commentary, quoting, or extra formatting."),
		)
		if err != nil {
			return "", err
		}

		return extractText(resp), nil
	})
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out bytes.Buffer
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String()
}
