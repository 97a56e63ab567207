package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asofia888/self-care-guide/models"
)

// upstream fakes the generation API with a fixed response.
func upstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("upstream method = %s, want POST", r.Method)
		}
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("upstream request missing API key header")
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// candidate wraps text in the generation API's response envelope.
func candidate(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
		}},
	})
	return string(body)
}

func testPrompt() Prompt {
	return BuildCompendiumPrompt(&models.CompendiumRequest{
		Query:    "ginger",
		Language: models.LanguageEnglish,
	})
}

func TestGeminiService_Generate(t *testing.T) {
	payload := `{"integrativeViewpoint":"v","kampoEntries":[],"westernHerbEntries":[{"name":"Ginger","category":"warming herb","summary":"s"}],"supplementEntries":[]}`
	srv := upstream(t, http.StatusOK, candidate(payload))

	svc := NewGeminiService("test-key", "gemini-2.5-flash", false).WithBaseURL(srv.URL)
	body, err := svc.Generate(context.Background(), testPrompt())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var result models.CompendiumResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	if result.IntegrativeViewpoint != "v" || len(result.WesternHerbEntries) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestGeminiService_StripsMarkdownFence(t *testing.T) {
	payload := "```json\n{\"integrativeViewpoint\":\"v\",\"kampoEntries\":[],\"westernHerbEntries\":[],\"supplementEntries\":[]}\n```"
	srv := upstream(t, http.StatusOK, candidate(payload))

	svc := NewGeminiService("test-key", "gemini-2.5-flash", false).WithBaseURL(srv.URL)
	if _, err := svc.Generate(context.Background(), testPrompt()); err != nil {
		t.Fatalf("Generate() error = %v, want fenced JSON tolerated", err)
	}
}

func TestGeminiService_ResponseFaults(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantMsg  string
		wantCode models.ErrorCode
	}{
		{
			name:     "no candidates",
			body:     `{"candidates":[]}`,
			wantMsg:  "empty response",
			wantCode: models.CodeUpstreamParse,
		},
		{
			name:     "blank text",
			body:     candidate("   "),
			wantMsg:  "empty response",
			wantCode: models.CodeUpstreamParse,
		},
		{
			name:     "non-JSON text",
			body:     candidate("here are my thoughts about ginger"),
			wantMsg:  "invalid response format",
			wantCode: models.CodeUpstreamParse,
		},
		{
			name:     "missing required field",
			body:     candidate(`{"kampoEntries":[],"westernHerbEntries":[],"supplementEntries":[]}`),
			wantMsg:  "incomplete response",
			wantCode: models.CodeUpstreamParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := upstream(t, http.StatusOK, tt.body)
			svc := NewGeminiService("test-key", "gemini-2.5-flash", false).WithBaseURL(srv.URL)

			_, err := svc.Generate(context.Background(), testPrompt())
			var apiErr *models.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Generate() error = %v, want *APIError", err)
			}
			if apiErr.Status != http.StatusInternalServerError {
				t.Errorf("Status = %d, want 500", apiErr.Status)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestGeminiService_UpstreamErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCode   models.ErrorCode
	}{
		{
			name:       "resource exhausted maps to 429",
			status:     429,
			body:       `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			wantStatus: 429,
			wantCode:   models.CodeRateLimited,
		},
		{
			name:       "unauthenticated maps to configuration error",
			status:     401,
			body:       `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`,
			wantStatus: 500,
			wantCode:   models.CodeAuthConfig,
		},
		{
			name:       "deadline exceeded maps to 504",
			status:     504,
			body:       `{"error":{"code":504,"message":"deadline","status":"DEADLINE_EXCEEDED"}}`,
			wantStatus: 504,
			wantCode:   models.CodeUpstreamTimeout,
		},
		{
			name:       "opaque failure maps to generic 500",
			status:     503,
			body:       `oops`,
			wantStatus: 500,
			wantCode:   models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := upstream(t, tt.status, tt.body)
			svc := NewGeminiService("test-key", "gemini-2.5-flash", false).WithBaseURL(srv.URL)

			_, err := svc.Generate(context.Background(), testPrompt())
			var apiErr *models.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Generate() error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.wantStatus)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", apiErr.Code, tt.wantCode)
			}
			// production mode keeps provider text out of the error
			if apiErr.Details != "" {
				t.Errorf("Details = %q, want empty", apiErr.Details)
			}
		})
	}
}

func TestGeminiService_MissingKeyShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	svc := NewGeminiService("", "gemini-2.5-flash", false).WithBaseURL(srv.URL)
	_, err := svc.Generate(context.Background(), testPrompt())

	var apiErr *models.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != models.CodeAuthConfig {
		t.Fatalf("Generate() error = %v, want auth config APIError", err)
	}
	if called {
		t.Error("upstream was called despite missing key")
	}
}

func TestGeminiService_NilSchemaShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	svc := NewGeminiService("test-key", "gemini-2.5-flash", false).WithBaseURL(srv.URL)
	if _, err := svc.Generate(context.Background(), Prompt{Text: "hi"}); err == nil {
		t.Fatal("Generate() with no schema expected an error")
	}
	if called {
		t.Error("upstream was called despite missing schema")
	}
}

func TestGeminiService_InlineImages(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}
		fmt.Fprint(w, candidate(`{"analysisMode":"general","wellnessProfile":{"title":"t","summary":"s"},"herbSuggestions":[],"supplementSuggestions":[],"lifestyleAdvice":{"diet":[],"sleep":[],"exercise":[]},"precautions":[]}`))
	}))

	req := &models.AnalysisRequest{
		Mode:        models.ModeGeneral,
		Profile:     json.RawMessage(`{}`),
		Language:    models.LanguageEnglish,
		TongueImage: &models.ImagePayload{Data: "aGVsbG8=", MimeType: "image/png"},
	}

	svc := NewGeminiService("test-key", "gemini-2.5-flash", false).WithBaseURL(srv.URL)
	_, err := svc.Generate(context.Background(), BuildAnalysisPrompt(req))
	srv.Close()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if got.SystemInstruction == nil {
		t.Fatal("upstream request missing system instruction")
	}
	if got.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q", got.GenerationConfig.ResponseMIMEType)
	}
	var inline *inlineData
	for _, p := range got.Contents[0].Parts {
		if p.InlineData != nil {
			inline = p.InlineData
		}
	}
	if inline == nil || inline.MimeType != "image/png" || inline.Data != "aGVsbG8=" {
		t.Errorf("inline image = %+v, want the tongue image", inline)
	}
}
