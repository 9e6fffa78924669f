package services

import (
	"context"
	"testing"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/upload"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Profile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfileFull(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	ctx := context.Background()

	_, err := env.users.UpdateProfile(ctx, alice.User.ID, &dto.UpdateProfileRequest{FirstName: strPtr("Al")}, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "last_name")

	user, err := env.users.UpdateProfile(ctx, alice.User.ID, &dto.UpdateProfileRequest{
		Email:     strPtr("alice@example.com"),
		FirstName: strPtr(" Alice "),
		LastName:  strPtr("Smith"),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
	assert.Equal(t, "Smith", user.LastName)
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	env.signup(t, "bob")
	ctx := context.Background()

	user, err := env.users.UpdateProfile(ctx, alice.User.ID, &dto.UpdateProfileRequest{LastName: strPtr("Jones")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Jones", user.LastName)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = env.users.UpdateProfile(ctx, alice.User.ID, &dto.UpdateProfileRequest{Email: strPtr("BOB@example.com")}, true)
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = env.users.UpdateProfile(ctx, alice.User.ID, &dto.UpdateProfileRequest{Email: strPtr("nope")}, true)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	ctx := context.Background()

	err := env.users.ChangePassword(ctx, alice.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "Fresh-Tarmac-77", ConfirmPassword: "Fresh-Tarmac-77",
	})
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = env.users.ChangePassword(ctx, alice.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "Fresh-Tarmac-77", ConfirmPassword: "Fresh-Tarmac-78",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = env.users.ChangePassword(ctx, alice.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "Fresh-Tarmac-77", ConfirmPassword: "Fresh-Tarmac-77",
	})
	require.NoError(t, err)
	assert.Zero(t, env.db.ActiveTokens(alice.User.ID))

	_, err = env.auth.Signin(ctx, &dto.SigninRequest{Username: "alice", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Signin(ctx, &dto.SigninRequest{Username: "alice", Password: "Fresh-Tarmac-77"})
	assert.NoError(t, err)
}

func TestDeleteAccountRemovesReportsAndPhotos(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	ctx := context.Background()

	report, err := env.reports.Create(ctx, alice.User.ID, reportRequest(1), &upload.Image{
		Filename: "road.png", ContentType: "image/png", Data: []byte("png-bytes"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.users.DeleteAccount(ctx, alice.User.ID, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, env.users.DeleteAccount(ctx, alice.User.ID, ""), ErrMissingFields)

	require.NoError(t, env.users.DeleteAccount(ctx, alice.User.ID, testPassword))

	_, err = env.users.Profile(ctx, alice.User.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = env.admin.Get(ctx, report.ID)
	assert.ErrorIs(t, err, ErrReportNotFound)

	exists, err := env.files.Exists(ctx, report.Image)
	require.NoError(t, err)
	assert.False(t, exists)
}
