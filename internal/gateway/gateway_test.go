package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/gateway"
)

type stubProvider struct {
	id  string
	err error
}

func (s *stubProvider) CreateCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error) {
	return s.id, s.err
}

func TestPlaceCallSuccess(t *testing.T) {
	gw := gateway.New(&stubProvider{id: "call-1"})
	id, err := gw.PlaceCall(context.Background(), "agent", "+254700000001", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "call-1", id)
}

func TestPlaceCallNormalizesErrors(t *testing.T) {
	gw := gateway.New(&stubProvider{err: errors.New("quota exceeded")})
	_, err := gw.PlaceCall(context.Background(), "agent", "+254700000001", "Alice")

	var pe *appErrors.PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "+254700000001", pe.PhoneNumber)
	assert.Contains(t, pe.Error(), "quota exceeded")
	assert.False(t, pe.Transport)
}

func TestPlaceCallTimeoutIsTransport(t *testing.T) {
	gw := gateway.New(&stubProvider{err: context.DeadlineExceeded})
	_, err := gw.PlaceCall(context.Background(), "agent", "+254700000001", "")

	var pe *appErrors.PlacementError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Transport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlaceCallRejectsEmptyNumberWithoutCallingProvider(t *testing.T) {
	gw := gateway.New(&stubProvider{err: errors.New("must not be called")})
	_, err := gw.PlaceCall(context.Background(), "agent", "  ", "")

	var pe *appErrors.PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "phone number is empty")
}

func TestHTTPProviderCreateCall(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/v1/calls", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "agent-7", body["agent_id"])
		assert.Equal(t, "+254700000001", body["phone_number"])
		assert.Equal(t, "Alice", body["customer_name"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"prov-123"}`))
	}))
	defer srv.Close()

	p := gateway.NewHTTPProvider(srv.URL+"/", "secret", time.Second)
	id, err := p.CreateCall(context.Background(), "agent-7", "+254700000001", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "prov-123", id)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPProviderRejectionCarriesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid phone number"}`))
	}))
	defer srv.Close()

	p := gateway.NewHTTPProvider(srv.URL, "", time.Second)
	_, err := p.CreateCall(context.Background(), "agent-7", "12", "")

	var pe *appErrors.PlacementError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Transport)
	assert.True(t, strings.Contains(pe.Error(), "invalid phone number"))
}

func TestHTTPProviderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := gateway.NewHTTPProvider(url, "", time.Second)
	_, err := p.CreateCall(context.Background(), "agent-7", "+254700000001", "")

	var pe *appErrors.PlacementError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Transport)
}

func TestMockProvider(t *testing.T) {
	ok := &gateway.MockProvider{}
	id, err := ok.CreateCall(context.Background(), "a", "+1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "mock-"))

	failing := &gateway.MockProvider{FailureRatio: 1}
	_, err = failing.CreateCall(context.Background(), "a", "+1", "")
	assert.Error(t, err)
}
