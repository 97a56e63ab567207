package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/asofia888/self-care-guide/models"
)

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Generator issues one structured-JSON generation call. Controllers
// depend on this interface; tests substitute a stub.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) ([]byte, error)
}

// GeminiService calls the hosted generation API. It performs exactly
// one request per Generate call; retrying is the client's concern.
type GeminiService struct {
	apiKey        string
	model         string
	baseURL       string
	exposeDetails bool
	client        *http.Client
}

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// NewGeminiService creates a generation client with the server's key.
// exposeDetails attaches raw upstream messages to errors and must be
// false in production.
func NewGeminiService(apiKey, model string, exposeDetails bool) *GeminiService {
	return &GeminiService{
		apiKey:        apiKey,
		model:         model,
		baseURL:       defaultBaseURL,
		exposeDetails: exposeDetails,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WithBaseURL points the service at a different API host. Tests use
// this with an httptest server.
func (s *GeminiService) WithBaseURL(url string) *GeminiService {
	s.baseURL = strings.TrimRight(url, "/")
	return s
}

// Request wire types for generateContent.
type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

// Response wire types.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type upstreamError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate issues one generation call and returns the response body as
// schema-conforming JSON. All failures come back as *models.APIError.
func (s *GeminiService) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	if s.apiKey == "" {
		// configuration fault, not an upstream one: logged distinctly
		log.Printf("ERROR: gemini API key not configured")
		return nil, models.NewAuthConfigError()
	}
	if prompt.Schema == nil {
		// every prompt builder attaches a response schema; a nil one is
		// a programming error, not an upstream fault
		return nil, fmt.Errorf("prompt has no response schema")
	}

	parts := []part{{Text: prompt.Text}}
	for _, img := range prompt.Images {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: img.MimeType,
			Data:     img.Data,
		}})
	}

	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   prompt.Schema,
		},
	}
	if prompt.System != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: prompt.System}}}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		// transport timeouts never carry a provider status token
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			apiErr := &models.APIError{
				Status:  http.StatusGatewayTimeout,
				Code:    models.CodeUpstreamTimeout,
				Message: "The request timed out. Please try again.",
			}
			if s.exposeDetails {
				apiErr.Details = err.Error()
			}
			return nil, apiErr
		}
		return nil, models.ClassifyUpstream(fmt.Errorf("failed to call generation API: %w", err), s.exposeDetails)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		msg := upstreamMessage(resp.StatusCode, body)
		apiErr := models.ClassifyUpstream(fmt.Errorf("generation API error: %s", msg), s.exposeDetails)
		if apiErr.Code == models.CodeAuthConfig {
			log.Printf("ERROR: generation API authentication failure: %s", msg)
		}
		return nil, apiErr
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, models.NewUpstreamParseError("invalid response format")
	}

	text := candidateText(&genResp)
	if text == "" {
		return nil, models.NewUpstreamParseError("empty response")
	}

	parsed := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, models.NewUpstreamParseError("invalid response format")
	}
	for _, field := range prompt.Schema.Required {
		if _, ok := parsed[field]; !ok {
			return nil, models.NewUpstreamParseError("incomplete response")
		}
	}

	return []byte(text), nil
}

// candidateText extracts and trims the first candidate's text. The
// instruction forbids markdown fencing, but strip it anyway when a
// model ignores that.
func candidateText(resp *generateResponse) string {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}

// upstreamMessage combines the provider's status token and message so
// the classifier sees both.
func upstreamMessage(statusCode int, body []byte) string {
	var ue upstreamError
	if err := json.Unmarshal(body, &ue); err == nil && ue.Error.Message != "" {
		return fmt.Sprintf("%s: %s", ue.Error.Status, ue.Error.Message)
	}
	return fmt.Sprintf("status %d: %s", statusCode, string(body))
}
