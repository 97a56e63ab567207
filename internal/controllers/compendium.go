package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/asofia888/self-care-guide/models"
	"github.com/asofia888/self-care-guide/internal/ratelimit"
	"github.com/asofia888/self-care-guide/internal/requestlog"
	"github.com/asofia888/self-care-guide/internal/services"
)

// CompendiumController handles POST /api/compendium.
type CompendiumController struct {
	generator     services.Generator
	limiter       *ratelimit.Limiter
	recorder      requestlog.Recorder
	exposeDetails bool
}

func NewCompendiumController(
	generator services.Generator,
	limiter *ratelimit.Limiter,
	recorder requestlog.Recorder,
	exposeDetails bool,
) *CompendiumController {
	return &CompendiumController{
		generator:     generator,
		limiter:       limiter,
		recorder:      recorder,
		exposeDetails: exposeDetails,
	}
}

// PostCompendium looks up a free-text query against the compendium
// schema. The compendium limit is twice the analysis limit: lookups
// are cheaper and browsier than full intakes.
func (c *CompendiumController) PostCompendium(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New()
	start := time.Now()
	key := ClientKey(r)
	status := http.StatusOK
	errCode := ""
	defer func() {
		c.recorder.Record(r.Context(), requestlog.Entry{
			ID:        requestID,
			Endpoint:  "compendium",
			ClientKey: key,
			Status:    status,
			ErrorCode: errCode,
			Latency:   time.Since(start),
			CreatedAt: start,
		})
	}()

	if handled, s := applyLimit(w, r, c.limiter, key, c.exposeDetails); handled {
		status, errCode = s, string(models.CodeRateLimited)
		return
	}

	var req models.CompendiumRequest
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

	prompt := services.BuildCompendiumPrompt(&req)
	body, err := c.generator.Generate(r.Context(), prompt)
	if err != nil {
		log.Printf("compendium %s failed: %v", requestID, err)
		status = respondError(w, err, c.exposeDetails)
		errCode = codeOf(err)
		return
	}

	log.Printf("compendium %s completed (lang=%s) in %s", requestID, req.Language, time.Since(start))
	respondJSON(w, http.StatusOK, body)
}
