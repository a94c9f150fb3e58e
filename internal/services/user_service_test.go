package services

import (
	"context"
	"testing"

	"github.com/isdelr/feed-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_SignupThenLogin(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	user := f.signup(t, "alice")
	assert.NotEmpty(t, user.ID)
	assert.Empty(t, user.PasswordHash)

	stored, err := f.users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", stored.PasswordHash)
	assert.True(t, f.users.VerifyPassword(stored, "pw123456"))

	loggedIn, err := f.users.AuthenticateUser(ctx, "Alice@Example.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)
}

func TestUserService_LoginFailures(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.signup(t, "alice")

	_, err := f.users.AuthenticateUser(ctx, "alice@example.com", "wrong-password")
	assert.True(t, models.HasCode(err, models.CodeUnauthenticated))

	_, err = f.users.AuthenticateUser(ctx, "nobody@example.com", "pw123456")
	assert.True(t, models.HasCode(err, models.CodeUnauthenticated))
}

func TestUserService_DuplicateEmail(t *testing.T) {
	f := setupFeed(t)
	f.signup(t, "alice")

	_, err := f.users.CreateUser(context.Background(), SignupInput{Email: "ALICE@example.com", Password: "another1", Name: "alice2"})
	assert.True(t, models.HasCode(err, models.CodeConflict))
}

func TestUserService_SignupValidation(t *testing.T) {
	f := setupFeed(t)

	tests := []struct {
		name  string
		input SignupInput
	}{
		{name: "invalid email", input: SignupInput{Email: "alice", Password: "pw123456", Name: "alice"}},
		{name: "short password", input: SignupInput{Email: "alice@example.com", Password: "pw", Name: "alice"}},
		{name: "blank name", input: SignupInput{Email: "alice@example.com", Password: "pw123456", Name: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.CreateUser(context.Background(), tt.input)
			assert.True(t, models.HasCode(err, models.CodeValidationFailed))
		})
	}
}

func TestUserService_PasswordKeptVerbatim(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, SignupInput{Email: "alice@example.com", Password: " pw12 ", Name: "alice"})
	require.NoError(t, err)

	_, err = f.users.AuthenticateUser(ctx, "alice@example.com", "pw12")
	assert.True(t, models.HasCode(err, models.CodeUnauthenticated))

	_, err = f.users.AuthenticateUser(ctx, "alice@example.com", " pw12 ")
	assert.NoError(t, err)
}
