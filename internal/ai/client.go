package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mindloom/internal/config"
)

// Turn is one prior conversation exchange in the model's message format.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Request is provider-agnostic; the client owns the wire encoding.
type Request struct {
	SystemInstruction string
	History           []Turn
	UserPrompt        string
	Temperature       float64
	SafetySettings    []SafetySetting
}

type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerationError marks a provider or network failure, as opposed to a
// successful call whose text could not be interpreted.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewGeminiClient(cfg config.Config) *GeminiClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &GeminiClient{
		apiKey:          strings.TrimSpace(cfg.GeminiAPIKey),
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/"),
		model:           strings.TrimSpace(cfg.GeminiModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  map[string]any  `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting `json:"safetySettings,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &GenerationError{Err: errors.New("GEMINI_API_KEY is not configured")}
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		return "", &GenerationError{Err: errors.New("model request prompt is empty")}
	}

	payload := geminiRequest{
		Contents:       buildContents(req),
		SafetySettings: req.SafetySettings,
	}
	if system := strings.TrimSpace(req.SystemInstruction); system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	generationConfig := map[string]any{
		"temperature": req.Temperature,
	}
	if c.maxOutputTokens > 0 {
		generationConfig["maxOutputTokens"] = c.maxOutputTokens
	}
	payload.GenerationConfig = generationConfig

	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerationError{Err: err}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyRaw))
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &GenerationError{
			Err: fmt.Errorf("gemini error (%d): %s", response.StatusCode, truncateForLog(string(responseBody), 600)),
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("gemini response decode failed: %w", err)}
	}
	if parsed.Error != nil {
		return "", &GenerationError{
			Err: fmt.Errorf("gemini error (%d): %s", parsed.Error.Code, parsed.Error.Message),
		}
	}

	text := extractCandidateText(parsed)
	if strings.TrimSpace(text) == "" {
		if reason := blockedFinishReason(parsed); reason != "" {
			return "", &GenerationError{Err: fmt.Errorf("gemini returned no text (finish reason %s)", reason)}
		}
		return "", &GenerationError{Err: errors.New("gemini response text is empty")}
	}
	return text, nil
}

// buildContents serializes history in Gemini's role vocabulary; the model
// sees prior assistant turns under the "model" role.
func buildContents(req Request) []geminiContent {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		switch role {
		case "user":
		case "assistant", "model":
			role = "model"
		default:
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: strings.TrimSpace(req.UserPrompt)}},
	})
	return contents
}

func extractCandidateText(parsed geminiResponse) string {
	if len(parsed.Candidates) == 0 {
		return ""
	}
	parts := make([]string, 0, len(parsed.Candidates[0].Content.Parts))
	for _, part := range parsed.Candidates[0].Content.Parts {
		if strings.TrimSpace(part.Text) != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func blockedFinishReason(parsed geminiResponse) string {
	if len(parsed.Candidates) == 0 {
		return ""
	}
	reason := strings.TrimSpace(parsed.Candidates[0].FinishReason)
	if reason == "" || strings.EqualFold(reason, "STOP") {
		return ""
	}
	return reason
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
