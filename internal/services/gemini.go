package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qufrids/ad-analyzer-sub000/internal/metrics"
)

const (
	geminiModel   = "gemini-2.5-flash"
	geminiAPIURL  = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	geminiTimeout = 90 * time.Second

	// Outbound politeness limit: the model API has its own quota, but we keep
	// a local ceiling so one burst of users can't burn it all.
	geminiRequestsPerSecond = 2
	geminiBurst             = 4
)

// ModelInvoker sends a built prompt to the generative model and returns the
// first text block of its response. Implemented by GeminiService; pipelines
// depend on the interface so tests can substitute a fake.
type ModelInvoker interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeminiService calls the Gemini generateContent REST API.
type GeminiService struct {
	apiKey     string
	httpClient *http.Client
	throttle   *rate.Limiter
	enabled    bool
}

// geminiRequest is the request body for the Gemini API
type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// geminiAPIResponse is the response from the Gemini API
type geminiAPIResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiService creates the model invoker.
func NewGeminiService() *GeminiService {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		// Try reading from file as fallback (for local dev)
		if keyPath := os.Getenv("GEMINI_API_KEY_FILE"); keyPath != "" {
			if data, err := os.ReadFile(keyPath); err == nil {
				apiKey = strings.TrimSpace(string(data))
			}
		}
	}

	svc := &GeminiService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: geminiTimeout},
		throttle:   rate.NewLimiter(rate.Limit(geminiRequestsPerSecond), geminiBurst),
		enabled:    apiKey != "",
	}

	if svc.enabled {
		// Only show first 10 chars of key for security
		keyPreview := apiKey
		if len(keyPreview) > 10 {
			keyPreview = keyPreview[:10] + "..."
		}
		infoLog("Gemini service: enabled (model=%s, key=%s)", geminiModel, keyPreview)
	} else {
		infoLog("Gemini service: disabled (no GEMINI_API_KEY)")
	}

	return svc
}

// IsEnabled returns whether the model invoker is configured.
func (s *GeminiService) IsEnabled() bool {
	return s.enabled
}

// Generate sends the prompt (system instruction + text + image blocks) and
// extracts the first text part of the first candidate. The output contract is
// carried entirely by the prompt; the response is returned as raw text for
// the parser to deal with.
func (s *GeminiService) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("Gemini service not enabled")
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return "", fmt.Errorf("throttle wait: %w", err)
	}

	startTime := time.Now()

	parts := []geminiPart{{Text: prompt.Text}}
	for _, img := range prompt.Images {
		parts = append(parts, geminiPart{InlineData: &geminiBlobPart{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	req := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.4,
			MaxOutputTokens: 2048,
		},
	}
	if prompt.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: prompt.System}}}
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiAPIURL, geminiModel) + "?key=" + s.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	debugLog("Gemini request: model=%s, text_len=%d, images=%d", geminiModel, len(prompt.Text), len(prompt.Images))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.ModelErrorsTotal.WithLabelValues("network").Inc()
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Record latency
	latency := time.Since(startTime)
	metrics.ModelLatency.Observe(latency.Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ModelErrorsTotal.WithLabelValues("read").Inc()
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ModelErrorsTotal.WithLabelValues("api").Inc()
		debugLog("Gemini API error: status=%d body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var apiResp geminiAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		metrics.ModelErrorsTotal.WithLabelValues("parse").Inc()
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}

	if apiResp.Error != nil {
		metrics.ModelErrorsTotal.WithLabelValues("api").Inc()
		return "", fmt.Errorf("API error %d: %s", apiResp.Error.Code, apiResp.Error.Message)
	}

	text := firstTextPart(&apiResp)
	if text == "" {
		metrics.ModelErrorsTotal.WithLabelValues("empty").Inc()
		return "", fmt.Errorf("no candidates in response: %w", ErrNoTextResponse)
	}

	metrics.ModelRequestsTotal.Inc()
	debugLog("Gemini response: %d chars in %v", len(text), latency)

	return text, nil
}

// firstTextPart extracts the first non-empty text block from the response.
func firstTextPart(resp *geminiAPIResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
