package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
)

func TestAuthAndCoachFlow(t *testing.T) {
	h := newHarness(t)
	auth := NewAuthService(h.store.Users(), "test-secret", time.Hour)
	coaches := NewCoachService(h.store.Users())

	coach, err := auth.Register(h.ctx, "Coach", "Coach@Example.com", "pw-123456", domain.RoleCoach)
	require.NoError(t, err)
	require.Empty(t, coach.PasswordHash)
	client, err := auth.Register(h.ctx, "Client", "client@example.com", "pw-123456", domain.RoleClient)
	require.NoError(t, err)

	_, err = auth.Register(h.ctx, "Dup", "coach@example.com", "x", domain.RoleCoach)
	require.ErrorIs(t, err, ErrUserAlreadyExists)
	var verr *ValidationError
	_, err = auth.Register(h.ctx, "Bad", "bad@example.com", "x", "admin")
	require.ErrorAs(t, err, &verr)

	token, user, err := auth.Login(h.ctx, "coach@example.com", "pw-123456")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, coach.ID, user.ID)
	_, _, err = auth.Login(h.ctx, "coach@example.com", "wrong")
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	require.ErrorIs(t, coaches.EnsureManaged(h.ctx, coach.ID, client.ID), ErrClientNotManaged)

	added, err := coaches.AddClientByEmail(h.ctx, coach.ID, "client@example.com")
	require.NoError(t, err)
	require.Equal(t, coach.ID, *added.CoachID)
	require.NoError(t, coaches.EnsureManaged(h.ctx, coach.ID, client.ID))
	require.ErrorIs(t, coaches.EnsureManaged(h.ctx, coach.ID, "ghost"), ErrClientNotFound)

	_, err = coaches.AddClientByEmail(h.ctx, coach.ID, "coach@example.com")
	require.ErrorIs(t, err, ErrClientNotRole)

	other, err := auth.Register(h.ctx, "Other", "other@example.com", "pw-123456", domain.RoleCoach)
	require.NoError(t, err)
	_, err = coaches.AddClientByEmail(h.ctx, other.ID, "client@example.com")
	require.ErrorIs(t, err, ErrClientAlreadyAssigned)

	list, err := coaches.GetManagedClients(h.ctx, coach.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, list[0].PasswordHash)
}
