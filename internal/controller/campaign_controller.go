// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/service"
)

// Executor applies lifecycle actions. Implemented by *service.LifecycleController.
type Executor interface {
	Execute(ctx context.Context, req service.ExecuteRequest) (*model.ExecutionResult, error)
}

type CampaignController struct {
	Lifecycle Executor
	Log       *zap.Logger
}

type executeBody struct {
	Action         string `json:"action"`
	OrganizationID string `json:"organizationId"`
}

type executeResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Results *model.ExecutionResult `json:"results,omitempty"`
}

// ExecuteCampaign handles POST /campaigns/{id}/execute.
func (c *CampaignController) ExecuteCampaign(w http.ResponseWriter, r *http.Request) {
	var body executeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, executeResponse{Message: "invalid body"})
		return
	}

	req, err := service.ParseExecuteRequest(chi.URLParam(r, "id"), body.Action, body.OrganizationID)
	if err != nil {
		c.fail(w, err)
		return
	}

	// The batch outlives the client connection.
	res, err := c.Lifecycle.Execute(context.WithoutCancel(r.Context()), req)
	if err != nil {
		c.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{Success: true, Message: res.Message, Results: res})
}

func (c *CampaignController) fail(w http.ResponseWriter, err error) {
	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.Log.Error("❌ campaign execution failed", zap.Error(err))
	}
	writeJSON(w, status, executeResponse{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
