package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/asofia888/self-care-guide/models"
)

func TestFormatErrorMessage_StatusClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		wantEn string
		wantJa string
	}{
		{"bad request", 400, "invalid", "無効"},
		{"unauthorized", 401, "not authorized", "権限"},
		{"forbidden", 403, "denied", "拒否"},
		{"not found", 404, "not found", "見つかりません"},
		{"rate limited", 429, "Too many requests", "リクエストが多すぎます"},
		{"server error", 500, "temporarily unavailable", "一時的に利用できません"},
		{"gateway timeout", 504, "temporarily unavailable", "一時的に利用できません"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &models.APIError{Status: tt.status, Message: "raw gateway text"}

			en := FormatErrorMessage(err, models.LanguageEnglish)
			if !strings.Contains(en, tt.wantEn) {
				t.Errorf("en = %q, want mention of %q", en, tt.wantEn)
			}
			ja := FormatErrorMessage(err, models.LanguageJapanese)
			if !strings.Contains(ja, tt.wantJa) {
				t.Errorf("ja = %q, want mention of %q", ja, tt.wantJa)
			}
		})
	}
}

func TestFormatErrorMessage_UnusualStatusEmbedsMessage(t *testing.T) {
	err := &models.APIError{Status: 418, Message: "teapot refused"}
	got := FormatErrorMessage(err, models.LanguageEnglish)
	if !strings.Contains(got, "teapot refused") {
		t.Errorf("got %q, want the raw message embedded for unmapped statuses", got)
	}
}

func TestFormatErrorMessage_NetworkDetection(t *testing.T) {
	for _, msg := range []string{
		"network error: dial tcp: connection refused",
		"Client.Timeout exceeded while awaiting headers",
		"dial tcp: lookup api.invalid: no such host",
	} {
		got := FormatErrorMessage(errors.New(msg), models.LanguageEnglish)
		if !strings.Contains(got, "network error") {
			t.Errorf("FormatErrorMessage(%q) = %q, want the network message", msg, got)
		}
		ja := FormatErrorMessage(errors.New(msg), models.LanguageJapanese)
		if !strings.Contains(ja, "ネットワーク") {
			t.Errorf("ja FormatErrorMessage(%q) = %q", msg, ja)
		}
	}
}

func TestFormatErrorMessage_EmbeddedJSONPayload(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{
			name: "nested error object",
			msg:  `AI API Error: {"error":{"message":"model is overloaded"}}`,
			want: "model is overloaded",
		},
		{
			name: "flat error field",
			msg:  `AI API Error: {"error":"bad things"}`,
			want: "bad things",
		},
		{
			name: "unparseable payload falls back to raw text",
			msg:  `AI API Error: <html>nope</html>`,
			want: "AI API Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatErrorMessage(errors.New(tt.msg), models.LanguageEnglish)
			if !strings.Contains(got, tt.want) {
				t.Errorf("got %q, want mention of %q", got, tt.want)
			}
		})
	}
}

func TestFormatErrorMessage_Total(t *testing.T) {
	// must return a displayable string for any input, and never panic
	inputs := []error{
		nil,
		errors.New(""),
		errors.New("plain failure"),
		&models.APIError{},
		fmt.Errorf("wrapped: %w", &models.APIError{Status: 429, Message: "m"}),
	}

	for _, err := range inputs {
		for _, lang := range []models.Language{models.LanguageEnglish, models.LanguageJapanese, "xx", ""} {
			got := FormatErrorMessage(err, lang)
			if got == "" {
				t.Errorf("FormatErrorMessage(%v, %q) = empty string", err, lang)
			}
		}
	}
}

func TestFormatErrorMessage_Idempotent(t *testing.T) {
	inputs := []error{
		nil,
		errors.New("network down"),
		&models.APIError{Status: 429, Message: "m"},
		errors.New(`AI API Error: {"error":{"message":"x"}}`),
	}
	for _, err := range inputs {
		for _, lang := range []models.Language{models.LanguageEnglish, models.LanguageJapanese} {
			first := FormatErrorMessage(err, lang)
			second := FormatErrorMessage(err, lang)
			if first != second {
				t.Errorf("FormatErrorMessage(%v, %s) not stable: %q vs %q", err, lang, first, second)
			}
		}
	}
}
