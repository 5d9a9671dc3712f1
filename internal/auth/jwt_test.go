package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circdesk/internal/auth"
	"circdesk/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", Role: models.UserRoleReader}

	token, err := auth.GenerateToken("secret", user, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.UserRoleReader, claims.Role)
	assert.NotEmpty(t, claims.ID, "token must carry a JTI")

	rebuilt := claims.User()
	assert.Equal(t, user.ID, rebuilt.ID)
	assert.Equal(t, user.Username, rebuilt.Username)
	assert.Equal(t, user.Role, rebuilt.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", Role: models.UserRoleReader}

	token, err := auth.GenerateToken("secret", user, time.Hour)
	require.NoError(t, err)

	_, err = auth.ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not.a.token")
	assert.Error(t, err)
}

func TestTokensAreUnique(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", Role: models.UserRoleReader}

	first, err := auth.GenerateToken("secret", user, time.Hour)
	require.NoError(t, err)
	second, err := auth.GenerateToken("secret", user, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "JTIs must differ between tokens")
}
