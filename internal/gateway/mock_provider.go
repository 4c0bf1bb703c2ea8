package gateway

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// MockProvider simulates the voice provider for local runs. FailureRatio
// is the share of calls rejected, 0 means every call succeeds.
type MockProvider struct {
	FailureRatio float64
}

func (m *MockProvider) CreateCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rand.Float64() < m.FailureRatio {
		return "", fmt.Errorf("mock provider rejected call to %s", phoneNumber)
	}
	return "mock-" + uuid.NewString(), nil
}
