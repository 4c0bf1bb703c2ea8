package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/service"
)

func TestMemoryExecutionStore(t *testing.T) {
	ctx := context.Background()
	s := service.NewMemoryExecutionStore()
	id := uuid.New()

	_, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	in := &model.ExecutionState{CampaignID: id, Status: model.CampaignRunning, CompletedCalls: 2, Errors: []string{"boom"}}
	require.NoError(t, s.Put(ctx, in))
	in.Errors[0] = "mutated"

	got, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"boom"}, got.Errors)
	assert.Equal(t, 2, got.CompletedCalls)

	got.Errors = append(got.Errors, "extra")
	again, _, _ := s.Get(ctx, id)
	assert.Len(t, again.Errors, 1)
}
