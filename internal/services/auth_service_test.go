package services

import (
	"context"
	"testing"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	resp := env.signup(t, "alice")

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, models.RoleUser, resp.User.Role)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, models.RoleUser, claims["role"])
}

func TestSignupRejections(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice")
	ctx := context.Background()

	valid := func() *dto.SignupRequest {
		return &dto.SignupRequest{
			Username: "bob", Email: "bob@example.com",
			Password: testPassword, ConfirmPassword: testPassword,
			FirstName: "Bob", LastName: "Builder",
		}
	}

	req := valid()
	req.LastName = "  "
	_, err := env.auth.Signup(ctx, req)
	assert.ErrorIs(t, err, ErrMissingFields)

	req = valid()
	req.ConfirmPassword = "something-else"
	_, err = env.auth.Signup(ctx, req)
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	req = valid()
	req.Username = "ALICE"
	_, err = env.auth.Signup(ctx, req)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	req = valid()
	req.Email = "Alice@Example.com"
	_, err = env.auth.Signup(ctx, req)
	assert.ErrorIs(t, err, ErrEmailTaken)

	req = valid()
	req.Email = "not-an-email"
	_, err = env.auth.Signup(ctx, req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")

	req = valid()
	req.Password, req.ConfirmPassword = "1234", "1234"
	_, err = env.auth.Signup(ctx, req)
	var perr *PasswordPolicyError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Problems, "This password is entirely numeric.")
}

func TestSignin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice")
	ctx := context.Background()

	resp, err := env.auth.Signin(ctx, &dto.SigninRequest{Username: "alice", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = env.auth.Signin(ctx, &dto.SigninRequest{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Signin(ctx, &dto.SigninRequest{Username: "nobody", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Signin(ctx, &dto.SigninRequest{Username: "alice"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	first := env.signup(t, "alice")
	ctx := context.Background()

	second, err := env.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = env.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshExpired(t *testing.T) {
	env := newTestEnv(t)
	resp := env.signup(t, "alice")
	env.db.ExpireTokens()

	_, err := env.auth.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, env.db.ActiveTokens(resp.User.ID))
}

func TestLogoutRevokes(t *testing.T) {
	env := newTestEnv(t)
	resp := env.signup(t, "alice")
	ctx := context.Background()

	require.NoError(t, env.auth.Logout(ctx, &dto.LogoutRequest{RefreshToken: resp.RefreshToken}))
	_, err := env.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
