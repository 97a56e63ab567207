package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/asofia888/self-care-guide/models"
)

// message keys for the fixed set of localized templates.
type messageKey string

const (
	msgInvalidRequest  messageKey = "invalid_request"
	msgUnauthorized    messageKey = "unauthorized"
	msgAccessDenied    messageKey = "access_denied"
	msgNotFound        messageKey = "not_found"
	msgTooManyRequests messageKey = "too_many_requests"
	msgServiceDown     messageKey = "service_unavailable"
	msgNetwork         messageKey = "network_error"
	msgUnexpected      messageKey = "unexpected"
	msgWithDetail      messageKey = "with_detail" // embeds a raw message
)

var messageTable = map[models.Language]map[messageKey]string{
	models.LanguageEnglish: {
		msgInvalidRequest:  "The request was invalid. Please check your input and try again.",
		msgUnauthorized:    "You are not authorized to perform this action.",
		msgAccessDenied:    "Access denied.",
		msgNotFound:        "The requested resource was not found.",
		msgTooManyRequests: "Too many requests. Please wait a moment and try again.",
		msgServiceDown:     "The service is temporarily unavailable. Please try again later.",
		msgNetwork:         "A network error occurred. Please check your connection and try again.",
		msgUnexpected:      "An unexpected error occurred. Please try again.",
		msgWithDetail:      "An error occurred: %s",
	},
	models.LanguageJapanese: {
		msgInvalidRequest:  "リクエストが無効です。入力内容をご確認のうえ、もう一度お試しください。",
		msgUnauthorized:    "この操作を行う権限がありません。",
		msgAccessDenied:    "アクセスが拒否されました。",
		msgNotFound:        "お探しのリソースが見つかりませんでした。",
		msgTooManyRequests: "リクエストが多すぎます。しばらく待ってからもう一度お試しください。",
		msgServiceDown:     "サービスが一時的に利用できません。しばらくしてからもう一度お試しください。",
		msgNetwork:         "ネットワークエラーが発生しました。接続をご確認のうえ、もう一度お試しください。",
		msgUnexpected:      "予期しないエラーが発生しました。もう一度お試しください。",
		msgWithDetail:      "エラーが発生しました: %s",
	},
}

// FormatErrorMessage maps any error to a displayable localized string.
// It is total: it never panics and always returns a non-empty message,
// whatever the input shape. Unknown languages fall back to English.
func FormatErrorMessage(err error, lang models.Language) string {
	table, ok := messageTable[lang]
	if !ok {
		table = messageTable[models.LanguageEnglish]
	}

	if err == nil {
		return table[msgUnexpected]
	}

	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusBadRequest:
			return table[msgInvalidRequest]
		case apiErr.Status == http.StatusUnauthorized:
			return table[msgUnauthorized]
		case apiErr.Status == http.StatusForbidden:
			return table[msgAccessDenied]
		case apiErr.Status == http.StatusNotFound:
			return table[msgNotFound]
		case apiErr.Status == http.StatusTooManyRequests:
			return table[msgTooManyRequests]
		case apiErr.Status >= 500:
			return table[msgServiceDown]
		default:
			return fmt.Sprintf(table[msgWithDetail], apiErr.Message)
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, tok := range transientTokens {
		if strings.Contains(lower, tok) {
			return table[msgNetwork]
		}
	}

	// some upstream wrappers embed a JSON payload after a fixed prefix
	if extracted := extractEmbeddedError(msg); extracted != "" {
		return fmt.Sprintf(table[msgWithDetail], extracted)
	}
	if msg != "" {
		return fmt.Sprintf(table[msgWithDetail], msg)
	}
	return table[msgUnexpected]
}

const embeddedErrorPrefix = "AI API Error:"

// extractEmbeddedError pulls a human-readable message out of an
// "AI API Error: {...}" wrapper, if present and parseable.
func extractEmbeddedError(msg string) string {
	idx := strings.Index(msg, embeddedErrorPrefix)
	if idx < 0 {
		return ""
	}
	payload := strings.TrimSpace(msg[idx+len(embeddedErrorPrefix):])

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(payload), &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(payload), &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return ""
}
