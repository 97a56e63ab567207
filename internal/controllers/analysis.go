package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/asofia888/self-care-guide/models"
	"github.com/asofia888/self-care-guide/internal/ratelimit"
	"github.com/asofia888/self-care-guide/internal/requestlog"
	"github.com/asofia888/self-care-guide/internal/services"
)

// AnalysisController handles POST /api/analysis.
type AnalysisController struct {
	generator     services.Generator
	limiter       *ratelimit.Limiter
	recorder      requestlog.Recorder
	exposeDetails bool
}

func NewAnalysisController(
	generator services.Generator,
	limiter *ratelimit.Limiter,
	recorder requestlog.Recorder,
	exposeDetails bool,
) *AnalysisController {
	return &AnalysisController{
		generator:     generator,
		limiter:       limiter,
		recorder:      recorder,
		exposeDetails: exposeDetails,
	}
}

// PostAnalysis validates an analysis request, applies the rate limit
// and issues one generation call. The model's JSON is passed through
// verbatim on success.
func (c *AnalysisController) PostAnalysis(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New()
	start := time.Now()
	key := ClientKey(r)
	status := http.StatusOK
	errCode := ""
	defer func() {
		c.recorder.Record(r.Context(), requestlog.Entry{
			ID:        requestID,
			Endpoint:  "analysis",
			ClientKey: key,
			Status:    status,
			ErrorCode: errCode,
			Latency:   time.Since(start),
			CreatedAt: start,
		})
	}()

	// rate limit runs before validation: reject abuse early even when
	// the payload is malformed
	if handled, s := applyLimit(w, r, c.limiter, key, c.exposeDetails); handled {
		status, errCode = s, string(models.CodeRateLimited)
		return
	}

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = respondError(w, models.NewValidationError("invalid JSON in request body"), c.exposeDetails)
		errCode = string(models.CodeValidation)
		return
	}
	if verr := req.Validate(); verr != nil {
		status = respondError(w, verr, c.exposeDetails)
		errCode = string(models.CodeValidation)
		return
	}

	prompt := services.BuildAnalysisPrompt(&req)
	body, err := c.generator.Generate(r.Context(), prompt)
	if err != nil {
		log.Printf("analysis %s failed (mode=%s): %v", requestID, req.Mode, err)
		status = respondError(w, err, c.exposeDetails)
		errCode = codeOf(err)
		return
	}

	log.Printf("analysis %s completed (mode=%s, lang=%s) in %s", requestID, req.Mode, req.Language, time.Since(start))
	respondJSON(w, http.StatusOK, body)
}

// applyLimit applies the limiter and writes the 429 response when the
// window is exhausted. Store failures fail open: the gateway keeps
// serving when the shared store is down.
func applyLimit(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter, key string, exposeDetails bool) (bool, int) {
	res, err := limiter.Allow(r.Context(), key)
	if err != nil {
		log.Printf("rate limit store error for %s: %v", key, err)
		return false, 0
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if res.Allowed {
		return false, 0
	}
	retryAfter := int(time.Until(res.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	return true, respondError(w, models.NewRateLimitError(), exposeDetails)
}

func codeOf(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Code)
	}
	return string(models.CodeInternal)
}
