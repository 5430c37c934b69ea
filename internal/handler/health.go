package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/usecase"
)

// HealthHandler exposes attestation and activity-data endpoints. Every
// route requires an authenticated user.
type HealthHandler struct {
	attestationUsecase usecase.AttestationUsecase
	healthUsecase      usecase.HealthUsecase
	validator          *requestValidator
	logger             *zerolog.Logger
}

func NewHealthHandler(
	attestationUsecase usecase.AttestationUsecase,
	healthUsecase usecase.HealthUsecase,
	logger *zerolog.Logger,
) *HealthHandler {
	return &HealthHandler{
		attestationUsecase: attestationUsecase,
		healthUsecase:      healthUsecase,
		validator:          newRequestValidator(),
		logger:             logger,
	}
}

// IssueNonce hands out a single-use attestation nonce.
// POST /health/attestation/nonce
func (h *HealthHandler) IssueNonce(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	grant, err := h.attestationUsecase.IssueNonce(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, grant)
}

// VerifyAttestation claims the nonce embedded in a device attestation.
// POST /health/attestation/verify
func (h *HealthHandler) VerifyAttestation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	var req attestationVerifyRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	err := h.attestationUsecase.VerifyAttestation(r.Context(), userID, req.Platform, req.Token, req.Nonce)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "attestation verified"})
}

// IngestData accumulates an activity sample into the day's record.
// POST /health/data
func (h *HealthHandler) IngestData(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	var req ingestHealthDataRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	data, err := h.healthUsecase.Ingest(r.Context(), userID, usecase.HealthSample{
		Date:     req.Date,
		Steps:    req.Steps,
		Duration: req.Duration,
		Calories: req.Calories,
		Distance: req.Distance,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, data)
}

// TodayData returns the current date's accumulated record.
// GET /health/data/today
func (h *HealthHandler) TodayData(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	data, err := h.healthUsecase.Today(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, data)
}

// Statistics returns grouped totals for a date range.
// GET /health/statistics?startDate=...&endDate=...&period=day|week|month
func (h *HealthHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	query := r.URL.Query()
	stats, err := h.healthUsecase.Statistics(
		r.Context(),
		userID,
		query.Get("startDate"),
		query.Get("endDate"),
		query.Get("period"),
	)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
