package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-otp-relay/backend/internal/audit/domain"
	"tg-otp-relay/backend/internal/testhelpers"
)

func TestPostgresRepository_CreateAndList(t *testing.T) {
	conn := testhelpers.StartPostgres(t)
	ctx := context.Background()
	r := NewPostgresRepository(conn)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"generate_code", "send", "verify"} {
		require.NoError(t, r.Create(ctx, &domain.AuditLog{
			ID: uuid.New().String(), TenantID: "T1", Action: action, Resource: "otp",
			IP: "10.0.0.1", Outcome: domain.OutcomeSuccess, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := r.ListByTenant(ctx, "T1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "verify", got[0].Action)
	assert.Equal(t, "send", got[1].Action)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Second)))

	none, err := r.ListByTenant(ctx, "T2", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
