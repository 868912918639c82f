package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echochat-backend/internal/models"
)

func TestUserRepo_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))

	tests := []struct {
		name string
		user *models.User
	}{
		{
			name: "with email",
			user: &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "hash1"},
		},
		{
			name: "without email",
			user: &models.User{Username: "bob", PasswordHash: "hash2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, tt.user))
			assert.NotZero(t, tt.user.ID)

			got, err := repo.GetByID(ctx, tt.user.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.user.Username, got.Username)
			assert.Equal(t, tt.user.Email, got.Email)
			assert.Equal(t, tt.user.PasswordHash, got.PasswordHash)
			assert.False(t, got.HasRememberToken())
			assert.Nil(t, got.LastLogin)
		})
	}
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepo(db)

	original := createTestUser(t, db, "alice")

	err := repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	repo := NewUserRepo(setupTestDB(t))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_RememberToken(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	user := createTestUser(t, db, "alice")

	expiry := time.Now().Add(7 * 24 * time.Hour)
	require.NoError(t, repo.SetRememberToken(ctx, user.ID, "token-hash", expiry))

	got, err := repo.GetByRememberTokenHash(ctx, "token-hash")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.True(t, got.HasRememberToken())
	assert.WithinDuration(t, expiry, *got.RememberTokenExpiry, time.Second)

	require.NoError(t, repo.ClearRememberToken(ctx, user.ID))

	_, err = repo.GetByRememberTokenHash(ctx, "token-hash")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_RememberToken_UnknownUser(t *testing.T) {
	repo := NewUserRepo(setupTestDB(t))

	err := repo.SetRememberToken(context.Background(), 42, "hash", time.Now())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_ClearExpiredRememberTokens(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	expired := createTestUser(t, db, "expired")
	valid := createTestUser(t, db, "valid")

	require.NoError(t, repo.SetRememberToken(ctx, expired.ID, "old", time.Now().Add(-time.Hour)))
	require.NoError(t, repo.SetRememberToken(ctx, valid.ID, "new", time.Now().Add(time.Hour)))

	n, err := repo.ClearExpiredRememberTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByRememberTokenHash(ctx, "old")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByRememberTokenHash(ctx, "new")
	assert.NoError(t, err)
}

func TestUserRepo_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	user := createTestUser(t, db, "alice")

	at := time.Now()
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, at, *got.LastLogin, time.Second)
}
