// internal/handler/campaign_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/service"
)

type DetailsReader interface {
	GetCampaignDetailsWithStats(ctx context.Context, campaignID uuid.UUID) (*service.CampaignDetails, error)
}

type StatusReader interface {
	GetExecutionStatus(ctx context.Context, campaignID uuid.UUID) (*model.ExecutionState, error)
}

// CampaignHandler holds the dependencies for the read-only campaign views
type CampaignHandler struct {
	Details DetailsReader
	Status  StatusReader
	Log     *zap.Logger
}

// GetCampaignHandlerWithStats returns a campaign with call record counts by status
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	h.Log.Debug("📥 campaign details requested", zap.String("campaign_id", id.String()))

	details, err := h.Details.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to fetch campaign", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

// GetExecutionStatusHandler returns the live or persisted execution state
func (h *CampaignHandler) GetExecutionStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	state, err := h.Status.GetExecutionStatus(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to fetch execution status", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

func (h *CampaignHandler) campaignID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *CampaignHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("❌ "+msg, zap.Error(err))
	}
	http.Error(w, msg+": "+err.Error(), status)
}
