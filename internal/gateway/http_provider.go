package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
)

// HTTPProvider talks to the voice provider's REST API.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type createCallRequest struct {
	AgentID      string `json:"agent_id"`
	PhoneNumber  string `json:"phone_number"`
	CustomerName string `json:"customer_name,omitempty"`
}

type createCallResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (p *HTTPProvider) CreateCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error) {
	body, err := json.Marshal(createCallRequest{
		AgentID:      agentID,
		PhoneNumber:  phoneNumber,
		CustomerName: displayName,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", &appErrors.PlacementError{PhoneNumber: phoneNumber, Msg: err.Error(), Transport: true, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &appErrors.PlacementError{PhoneNumber: phoneNumber, Msg: err.Error(), Transport: true, Cause: err}
	}

	var out createCallResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &appErrors.PlacementError{
			PhoneNumber: phoneNumber,
			Msg:         fmt.Sprintf("provider rejected call (%d): %s", resp.StatusCode, msg),
		}
	}
	if out.ID == "" {
		return "", &appErrors.PlacementError{PhoneNumber: phoneNumber, Msg: "provider returned no call id"}
	}
	return out.ID, nil
}
