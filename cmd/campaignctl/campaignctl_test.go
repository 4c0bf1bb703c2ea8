package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
)

func TestSeedFilesSchemaFirst(t *testing.T) {
	files := seedFiles("db/seed")
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join("db", "seed", "schema.sql"), files[0])
	assert.Equal(t, filepath.Join("db", "seed", "demo.sql"), files[1])
}

func TestBuildCommand(t *testing.T) {
	id, org := uuid.New(), uuid.New()

	cmd, err := buildCommand(id.String(), "stop", org.String())
	require.NoError(t, err)
	assert.Equal(t, "stop", cmd.Action)
	assert.Equal(t, id.String(), cmd.CampaignID)
	assert.Equal(t, org.String(), cmd.OrganizationID)

	_, err = buildCommand(id.String(), "start", "")
	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "organizationId", ve.Field)
}

func TestEnqueueRequiresTwoArgs(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"enqueue", uuid.NewString()})

	require.Error(t, rootCmd.Execute())
}
