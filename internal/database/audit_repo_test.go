package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echochat-backend/internal/models"
)

func TestAuditRepo_LogAndList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewAuditRepo(db)
	user := createTestUser(t, db, "alice")

	require.NoError(t, repo.Log(ctx, user.ID, "alice", models.ActionRegister, "alice", nil, "10.0.0.1"))
	require.NoError(t, repo.Log(ctx, user.ID, "alice", models.ActionLogin, "alice", map[string]bool{"remember_me": true}, "10.0.0.1"))
	// failed logins have no user
	require.NoError(t, repo.Log(ctx, 0, "mallory", models.ActionLoginFailed, "mallory", nil, "10.0.0.2"))

	logs, total, err := repo.List(ctx, models.AuditFilter{UserID: &user.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActionLogin, logs[0].Action)
	assert.JSONEq(t, `{"remember_me":true}`, logs[0].Details)
	assert.Equal(t, models.ActionRegister, logs[1].Action)

	failed, total, err := repo.List(ctx, models.AuditFilter{Action: models.ActionLoginFailed})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, failed, 1)
	assert.Zero(t, failed[0].UserID)
	assert.Equal(t, "mallory", failed[0].Username)
}

func TestAuditRepo_ListPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepo(setupTestDB(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Log(ctx, 0, "x", models.ActionLoginFailed, "x", nil, ""))
	}

	logs, total, err := repo.List(ctx, models.AuditFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, logs, 2)
}
