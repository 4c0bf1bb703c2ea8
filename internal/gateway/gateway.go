// Package gateway places outbound calls through the voice call provider.
package gateway

import (
	"context"
	"errors"
	"strings"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
)

// VoiceProvider originates one phone call and returns the provider call id.
type VoiceProvider interface {
	CreateCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error)
}

// Gateway is the call placement adapter. It issues exactly one provider
// request per PlaceCall and never retries.
type Gateway struct {
	Provider VoiceProvider
}

func New(p VoiceProvider) *Gateway {
	return &Gateway{Provider: p}
}

// PlaceCall normalizes every provider failure into *appErrors.PlacementError.
func (g *Gateway) PlaceCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return "", &appErrors.PlacementError{Msg: "phone number is empty"}
	}

	callID, err := g.Provider.CreateCall(ctx, agentID, phoneNumber, displayName)
	if err != nil {
		var pe *appErrors.PlacementError
		if errors.As(err, &pe) {
			if pe.PhoneNumber == "" {
				pe.PhoneNumber = phoneNumber
			}
			return "", pe
		}
		return "", &appErrors.PlacementError{
			PhoneNumber: phoneNumber,
			Msg:         err.Error(),
			Transport:   errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
			Cause:       err,
		}
	}
	if callID == "" {
		return "", &appErrors.PlacementError{PhoneNumber: phoneNumber, Msg: "provider returned no call id"}
	}
	return callID, nil
}
