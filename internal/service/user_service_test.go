package service_test

import (
	"context"
	"testing"
	"time"

	"backend/internal/config"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) (service.UserService, *gorm.DB) {
	db := newTestDB(t)
	svc := service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		nil, // redis-backed paths are not exercised here
		repository.NewTransactionManager(db),
		config.JWTConfig{Secret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		15*time.Minute,
	)
	return svc, db
}

func register(t *testing.T, svc service.UserService, email, name string) *service.UserResponse {
	resp, err := svc.Register(context.Background(), service.RegisterUserRequest{
		Email:       email,
		Password:    "secret123",
		DisplayName: name,
	})
	require.NoError(t, err)
	return resp
}

func TestUserService_Register_FirstUserIsAdministrator(t *testing.T) {
	svc, _ := newUserService(t)

	first := register(t, svc, "founder@example.com", "Founder")
	assert.Equal(t, model.RoleAdministrator, first.Role)

	second := register(t, svc, "hire@example.com", "New Hire")
	assert.Equal(t, model.RoleRequester, second.Role)

	third := register(t, svc, "later@example.com", "Even Later")
	assert.Equal(t, model.RoleRequester, third.Role)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)
	register(t, svc, "taken@example.com", "First")

	_, err := svc.Register(context.Background(), service.RegisterUserRequest{
		Email:       "taken@example.com",
		Password:    "secret123",
		DisplayName: "Second",
	})
	assert.EqualError(t, err, "email already exists")
}

func TestUserService_Register_InvalidEmail(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(context.Background(), service.RegisterUserRequest{
		Email:       "not-an-email",
		Password:    "secret123",
		DisplayName: "Nobody",
	})
	assert.EqualError(t, err, "invalid email format")
}

func TestUserService_Login(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	register(t, svc, "user@example.com", "User")

	tokens, err := svc.Login(ctx, service.LoginUserRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, err = svc.Login(ctx, service.LoginUserRequest{Email: "user@example.com", Password: "wrong"})
	assert.EqualError(t, err, "invalid email or password")

	_, err = svc.Login(ctx, service.LoginUserRequest{Email: "ghost@example.com", Password: "secret123"})
	assert.EqualError(t, err, "invalid email or password")
}

func TestUserService_RefreshToken_Rotates(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	register(t, svc, "user@example.com", "User")

	tokens, err := svc.Login(ctx, service.LoginUserRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)

	renewed, err := svc.RefreshToken(ctx, service.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, renewed.Token)
	assert.NotEqual(t, tokens.RefreshToken, renewed.RefreshToken)

	// The presented token was spent by the rotation
	_, err = svc.RefreshToken(ctx, service.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.EqualError(t, err, "invalid refresh token")
}

func TestUserService_RefreshToken_Expired(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()
	user := register(t, svc, "user@example.com", "User")

	stale := &model.RefreshToken{
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(stale).Error)

	_, err := svc.RefreshToken(ctx, service.RefreshTokenRequest{RefreshToken: "stale-token"})
	assert.EqualError(t, err, "refresh token expired")
}

func TestUserService_Logout_RevokesRefreshToken(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()
	register(t, svc, "user@example.com", "User")

	tokens, err := svc.Login(ctx, service.LoginUserRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "", tokens.RefreshToken))

	var count int64
	require.NoError(t, db.Model(&model.RefreshToken{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUserService_UpdateUser_RoleChange(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	register(t, svc, "admin@example.com", "Admin")
	user := register(t, svc, "user@example.com", "User")

	updated, err := svc.UpdateUser(ctx, user.ID.String(), service.UpdateUserRequest{Role: model.RoleSuperior})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperior, updated.Role)

	_, err = svc.UpdateUser(ctx, user.ID.String(), service.UpdateUserRequest{Role: "manager"})
	assert.Error(t, err)
}

func TestUserService_UpdateUser_Profile(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	user := register(t, svc, "user@example.com", "User")

	updated, err := svc.UpdateUser(ctx, user.ID.String(), service.UpdateUserRequest{
		DisplayName: "Renamed",
		Department:  "Finance",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Equal(t, "Finance", updated.Department)
	// Untouched fields keep their values
	assert.Equal(t, "user@example.com", updated.Email)
	assert.Equal(t, model.RoleAdministrator, updated.Role)
}

func TestUserService_ListUsers(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	register(t, svc, "a@example.com", "A")
	register(t, svc, "b@example.com", "B")
	register(t, svc, "c@example.com", "C")

	users, total, err := svc.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 2)

	users, _, err = svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserService_DeleteUser(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()
	register(t, svc, "admin@example.com", "Admin")
	user := register(t, svc, "user@example.com", "User")

	tokens, err := svc.Login(ctx, service.LoginUserRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.RefreshToken)

	require.NoError(t, svc.DeleteUser(ctx, user.ID.String()))

	_, err = svc.GetUserByID(ctx, user.ID.String())
	assert.EqualError(t, err, "user not found")

	// Sessions do not survive the account
	var count int64
	require.NoError(t, db.Model(&model.RefreshToken{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
