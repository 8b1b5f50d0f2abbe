package usecase

import (
	"context"
	"testing"

	"bus-booking/internal/data/entity"
	"bus-booking/internal/dto/request"
	"bus-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthFixture() (*memStore, AuthService) {
	store := newMemStore()
	cfg := &utils.Config{Session: utils.SessionConfig{ExpiryHours: 1}}
	return store, NewAuthService(store.repository(), cfg, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	store, svc := newAuthFixture()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &request.RegisterRequest{
		Username: "traveller",
		Email:    "traveller@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCustomer, reg.Role)
	assert.NotEmpty(t, reg.Token)
	require.NotNil(t, reg.ExpiresAt)

	// by username and by email
	for _, identifier := range []string{"traveller", "traveller@example.com"} {
		resp, err := svc.Login(ctx, &request.LoginRequest{Username: identifier, Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, reg.UserID, resp.UserID)

		session, err := store.repository().Session.FindValidSession(ctx, resp.Token)
		require.NoError(t, err)
		require.NotNil(t, session)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, &request.RegisterRequest{Username: "one", Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &request.RegisterRequest{Username: "two", Email: "a@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrSeatUnavailable) // conflict kind

	_, err = svc.Register(ctx, &request.RegisterRequest{Username: "one", Email: "b@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrSeatUnavailable)

	_, err = svc.Register(ctx, &request.RegisterRequest{Username: "x", Email: "bad", Password: "1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin_Rejected(t *testing.T) {
	_, svc := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, &request.RegisterRequest{Username: "rider", Email: "r@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &request.LoginRequest{Username: "rider", Password: "wrongpass"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, &request.LoginRequest{Username: "ghost", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_RevokesSession(t *testing.T) {
	store, svc := newAuthFixture()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &request.RegisterRequest{Username: "leaver", Email: "l@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, reg.Token))

	session, err := store.repository().Session.FindValidSession(ctx, reg.Token)
	require.NoError(t, err)
	assert.Nil(t, session)

	assert.ErrorIs(t, svc.Logout(ctx, "not-a-token"), ErrValidation)
}
