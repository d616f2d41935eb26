package service

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-unit-test-secret"

func newAuthFixture() (*AuthService, *memUsers, *fakeClock) {
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.ExpireTime = time.Hour
	cfg.Auth.AdminEmails = []string{"root@example.com"}
	users := newMemUsers()
	clock := newFakeClock()
	return NewAuthService(users, clock, cfg), users, clock
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()

	user, err := svc.Register(ctx, &RegisterRequest{Name: " Ada ", Email: "Ada@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, model.RoleStudent, user.Role)
	assert.NotEqual(t, "correct horse", user.Password)

	_, err = svc.Register(ctx, &RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "another one"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	admin, err := svc.Register(ctx, &RegisterRequest{Name: "Root", Email: "root@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, users, clock := newAuthFixture()
	registered, err := svc.Register(ctx, &RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, &LoginRequest{Email: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotNil(t, user.LastLogin)
	assert.Equal(t, clock.Now(), *user.LastLogin)

	claims, err := util.ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, model.RoleStudent, claims.Role)

	_, _, err = svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, util.ErrInvalidLogin)

	_, _, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, util.ErrInvalidLogin)

	users.byID[registered.ID].Disabled = true
	_, _, err = svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, util.ErrAccountDisabled)
}

func TestCurrentUser(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, err := svc.CurrentUser(context.Background(), "missing")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
