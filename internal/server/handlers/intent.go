package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/leadgate/leadgate/internal/core"
	apperrors "github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/observability"
	"github.com/leadgate/leadgate/internal/scoring"
)

// ScoreResponse is the intent-score wire shape. A failed scoring run
// still answers with this shape so dashboard code has one contract:
// score is null and error says why.
type ScoreResponse struct {
	Score *int   `json:"score"`
	Error string `json:"error,omitempty"`
}

// LeadScorer is the slice of the scorer the handler needs.
type LeadScorer interface {
	Score(ctx context.Context, lead *core.Lead) (int, error)
}

// IntentScore serves POST /api/intent-score.
type IntentScore struct {
	Scorer   LeadScorer
	Validate *validator.Validate
}

// NewIntentScore returns the handler over the given scorer.
func NewIntentScore(scorer LeadScorer) *IntentScore {
	return &IntentScore{
		Scorer:   scorer,
		Validate: validator.New(),
	}
}

func (h *IntentScore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, r, apperrors.NewMethodNotAllowedError("Method not allowed"))
		return
	}

	if h == nil || h.Scorer == nil {
		respondWithError(w, r, apperrors.NewConfigInvalidError("Intent scoring is not configured"))
		return
	}

	var lead core.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid request body"))
		return
	}

	if h.Validate != nil {
		if err := h.Validate.Struct(&lead); err != nil {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid lead fields"))
			return
		}
	}

	start := time.Now()
	score, err := h.Scorer.Score(r.Context(), &lead)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordScoreRequest(false, duration)
		h.respondScoreFailure(w, r, err)
		return
	}

	metrics.RecordScoreRequest(true, duration)
	writeScoreJSON(w, http.StatusOK, ScoreResponse{Score: &score})
}

// respondScoreFailure maps every scoring failure to 502 with a null
// score. Provider detail stays in the server log.
func (h *IntentScore) respondScoreFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, scoring.ErrNoAPIKey) {
		respondWithError(w, r, apperrors.NewConfigInvalidError("Scoring provider is not configured"))
		return
	}

	message := "Failed to score lead"

	var invalid *scoring.InvalidScoreError
	var upstream *scoring.UpstreamError
	switch {
	case errors.As(err, &invalid):
		message = "Invalid score returned"
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Scoring reply out of range",
				zap.String("reply", invalid.Reply))
		}
	case errors.As(err, &upstream):
		if observability.ServerLogger != nil {
			observability.ServerLogger.Error("Scoring provider error",
				zap.Int("upstream_status", upstream.StatusCode),
				zap.ByteString("upstream_body", upstream.RawResponse))
		}
	default:
		if observability.ServerLogger != nil {
			observability.ServerLogger.Error("Scoring request failed", zap.Error(err))
		}
	}

	writeScoreJSON(w, http.StatusBadGateway, ScoreResponse{Error: message})
}

func writeScoreJSON(w http.ResponseWriter, status int, payload ScoreResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
