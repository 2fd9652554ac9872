package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

const mistralOCREndpoint = "https://api.mistral.ai/v1/ocr"

type mistralOCRDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type mistralOCRRequest struct {
	Model    string              `json:"model"`
	Document mistralOCRDocument  `json:"document"`
}

type mistralOCRPage struct {
	Markdown string `json:"markdown"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralErrorResponse struct {
	Message string `json:"message"`
}

// MistralProvider is the alternate/fallback OCR backend, grounded on the
// teacher's mistral.go: a plain net/http client, no SDK dependency.
type MistralProvider struct {
	apiKey string
	model  string
	client *http.Client
}

func NewMistralProvider(apiKey, model string, timeout time.Duration) *MistralProvider {
	return &MistralProvider{apiKey: apiKey, model: model, client: &http.Client{Timeout: timeout}}
}

func (MistralProvider) Name() string { return "mistral" }

func (m *MistralProvider) Recognize(ctx context.Context, img image.Image) (string, error) {
	if m.apiKey == "" {
		return "", &BackendError{Category: "unavailable", Retryable: false, Err: fmt.Errorf("MISTRAL_API_KEY not configured")}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return "", fmt.Errorf("encoding crop for mistral: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	return m.callMistralOCRAPI(ctx, dataURL)
}

func (m *MistralProvider) callMistralOCRAPI(ctx context.Context, dataURL string) (string, error) {
	reqBody := mistralOCRRequest{
		Model: m.model,
		Document: mistralOCRDocument{
			Type:     "image_url",
			ImageURL: dataURL,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling mistral request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, mistralOCREndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building mistral request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", &BackendError{Category: "network", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading mistral response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp mistralErrorResponse
		_ = json.Unmarshal(body, &errResp)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", &BackendError{
			Category:  "mistral_http_error",
			Retryable: retryable,
			Err:       fmt.Errorf("mistral ocr returned %d: %s", resp.StatusCode, errResp.Message),
		}
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return "", fmt.Errorf("parsing mistral response: %w", err)
	}
	if len(ocrResp.Pages) == 0 {
		return "", nil
	}
	return ocrResp.Pages[0].Markdown, nil
}
