package repository

import (
	"context"
	"testing"

	"biblio/internal/models"
	"biblio/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditAppendAndHasAction(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := NewAuditRepository(db)

	entry := &models.AuditEntry{
		EntryID:   uuid.NewString(),
		RequestID: 42,
		ActorID:   7,
		Action:    models.AuditActionSubmit,
	}
	require.NoError(t, repo.Append(context.Background(), entry))

	has, err := repo.HasAction(context.Background(), 42, models.AuditActionSubmit)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasAction(context.Background(), 42, models.AuditActionReturn)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = repo.HasAction(context.Background(), 43, models.AuditActionSubmit)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestAuditListByRequestOrdersOldestFirst(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := NewAuditRepository(db)

	for _, action := range []models.AuditAction{models.AuditActionSubmit, models.AuditActionApprove, models.AuditActionReturn} {
		require.NoError(t, repo.Append(context.Background(), &models.AuditEntry{
			EntryID:   uuid.NewString(),
			RequestID: 1,
			Action:    action,
		}))
	}

	entries, err := repo.ListByRequest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.AuditActionSubmit, entries[0].Action)
	assert.Equal(t, models.AuditActionReturn, entries[2].Action)
}
