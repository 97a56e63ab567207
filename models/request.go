package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Mode selects between the professional clinical intake and the
// general wellness questionnaire.
type Mode string

const (
	ModeProfessional Mode = "professional"
	ModeGeneral      Mode = "general"
)

func (m Mode) Valid() bool {
	return m == ModeProfessional || m == ModeGeneral
}

// Language selects the response language.
type Language string

const (
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
)

func (l Language) Valid() bool {
	return l == LanguageJapanese || l == LanguageEnglish
}

// DisplayName returns the language name as embedded in prompts.
func (l Language) DisplayName() string {
	if l == LanguageJapanese {
		return "Japanese (日本語)"
	}
	return "English"
}

// MaxImageBytes bounds the decoded size of an uploaded image.
const MaxImageBytes = 4 << 20 // 4 MiB

// MaxQueryLength bounds a compendium query.
const MaxQueryLength = 500

// ImagePayload is a base64-encoded inline image.
type ImagePayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Validate checks the MIME type and the decoded-size estimate. The
// estimate (base64 length * 3/4) avoids decoding multi-megabyte blobs
// just to reject them.
func (p *ImagePayload) Validate(field string) *APIError {
	if !strings.HasPrefix(p.MimeType, "image/") {
		return NewValidationError(field + " must be an image")
	}
	if len(p.Data)*3/4 > MaxImageBytes {
		return NewValidationError(field + " exceeds the 4MB size limit")
	}
	return nil
}

// AnalysisRequest is the body of POST /api/analysis.
// Profile is kept raw: the server checks only that it is a non-null
// object. Field-level completeness is a client form concern.
type AnalysisRequest struct {
	Mode        Mode            `json:"mode"`
	Profile     json.RawMessage `json:"profile"`
	Language    Language        `json:"language"`
	FaceImage   *ImagePayload   `json:"faceImage,omitempty"`
	TongueImage *ImagePayload   `json:"tongueImage,omitempty"`
}

// Validate applies the gateway's shape rules and returns a 400-class
// APIError on the first violation.
func (r *AnalysisRequest) Validate() *APIError {
	if !r.Mode.Valid() {
		return NewValidationError("mode must be 'professional' or 'general'")
	}
	if !isJSONObject(r.Profile) {
		return NewValidationError("profile must be an object")
	}
	if !r.Language.Valid() {
		return NewValidationError("language must be 'ja' or 'en'")
	}
	if r.FaceImage != nil {
		if err := r.FaceImage.Validate("faceImage"); err != nil {
			return err
		}
	}
	if r.TongueImage != nil {
		if err := r.TongueImage.Validate("tongueImage"); err != nil {
			return err
		}
	}
	return nil
}

// CompendiumRequest is the body of POST /api/compendium.
type CompendiumRequest struct {
	Query    string   `json:"query"`
	Language Language `json:"language"`
}

func (r *CompendiumRequest) Validate() *APIError {
	query := strings.TrimSpace(r.Query)
	if query == "" {
		return NewValidationError("query must be a non-empty string")
	}
	if len([]rune(r.Query)) > MaxQueryLength {
		return NewValidationError("query must be 500 characters or fewer")
	}
	if !r.Language.Valid() {
		return NewValidationError("language must be 'ja' or 'en'")
	}
	return nil
}

// isJSONObject reports whether raw holds a JSON object literal
// (not null, not an array, not a scalar).
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
