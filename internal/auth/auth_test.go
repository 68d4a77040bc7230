package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

func setupService(t *testing.T) *Service {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, nil)
}

func TestGate(t *testing.T) {
	gate := NewGate()

	admin := Actor{ID: 1, Name: "Admin", Role: types.RoleAdmin}
	clerk := Actor{ID: 2, Name: "Clerk", Role: types.RoleClerk}

	assert.NoError(t, gate.Require(admin, CapCancelSale))
	assert.NoError(t, gate.Require(admin, CapManageCatalog))
	assert.NoError(t, gate.Require(clerk, CapCreateSale))
	assert.NoError(t, gate.Require(clerk, CapViewSales))

	assert.ErrorIs(t, gate.Require(clerk, CapCancelSale), types.ErrPermissionDenied)
	assert.ErrorIs(t, gate.Require(clerk, CapManageCatalog), types.ErrPermissionDenied)
	assert.ErrorIs(t, gate.Require(clerk, CapAdjustStock), types.ErrPermissionDenied)
	assert.ErrorIs(t, gate.Require(clerk, CapViewReports), types.ErrPermissionDenied)
	assert.ErrorIs(t, gate.Require(Actor{Role: "ghost"}, CapCreateSale), types.ErrPermissionDenied)
}

func TestAuthenticate(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "maria", "María", "maria@example.com", "s3cret", types.RoleClerk)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	actor, token, err := svc.Authenticate(ctx, "maria", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, types.RoleClerk, actor.Role)
	assert.NotEmpty(t, token)

	resolved, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, actor, resolved)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "maria", "María", "", "s3cret", types.RoleClerk)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, "maria", "nope")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(ctx, "ghost", "s3cret")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	user := &types.User{Username: "gone", Name: "Gone", PasswordHash: hash, Role: types.RoleClerk, Active: false}
	require.NoError(t, svc.store.CreateUser(ctx, user))

	_, _, err = svc.Authenticate(ctx, "gone", "s3cret")
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
}

func TestRevoke(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "maria", "María", "", "s3cret", types.RoleClerk)
	require.NoError(t, err)
	_, token, err := svc.Authenticate(ctx, "maria", "s3cret")
	require.NoError(t, err)

	svc.Revoke(token)
	_, err = svc.Resolve(token)
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)

	// Revoking again is harmless
	svc.Revoke(token)
}

func TestActorByID(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "maria", "María", "", "s3cret", types.RoleClerk)
	require.NoError(t, err)

	actor, err := svc.ActorByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, "María", actor.Name)

	_, err = svc.ActorByID(ctx, 9999)
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
}
