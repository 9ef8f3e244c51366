package repository

import (
	"context"
	"testing"

	"quill/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserGetByID(t *testing.T) {
	users, _, _ := setupRepos(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, users.Create(ctx, user))
	assert.NotEmpty(t, user.ID, "BeforeCreate should assign a UUID")

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = users.GetByID(ctx, "short")
	assert.True(t, models.HasCode(err, models.CodeMalformedID))

	_, err = users.GetByID(ctx, uuid.NewString())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserLookupByIdentifier(t *testing.T) {
	users, _, _ := setupRepos(t)
	ctx := context.Background()

	user := &models.User{Username: "bob", Email: "bob@example.com", Password: "x"}
	require.NoError(t, users.Create(ctx, user))

	byEmail, err := users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byUsername, err := users.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, byUsername)
	assert.Equal(t, user.ID, byUsername.ID)

	// Missing identifiers are (nil, nil), not an error
	missing, err := users.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = users.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
