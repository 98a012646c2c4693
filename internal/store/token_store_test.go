package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/microcommerce/auth-service/internal/apperrors"
	"github.com/microcommerce/auth-service/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite is per-connection; pin the pool to one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))
	return db
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(newTestDB(t))

	rec, err := s.Create(ctx, 1, "hash-a", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, uint(1), rec.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), rec.ExpiresAt, 5*time.Second)

	found, err := s.FindByOwnerAndHash(ctx, 1, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)
	assert.Equal(t, "1.2.3.4", found.IPAddress)
	assert.Equal(t, "agent", found.DeviceInfo)
}

func TestFind_WrongOwnerOrValue(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(newTestDB(t))

	_, err := s.Create(ctx, 1, "hash-a", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)

	_, err = s.FindByOwnerAndHash(ctx, 2, "hash-a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.FindByOwnerAndHash(ctx, 1, "hash-b")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRotate_ReplacesValueAndExpiryInPlace(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewTokenStore(db)

	rec, err := s.Create(ctx, 1, "hash-old", "1.2.3.4", "agent", time.Minute)
	require.NoError(t, err)

	rotated, err := s.Rotate(ctx, rec.ID, "hash-old", "hash-new", "5.6.7.8", "new-agent", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, rotated.ID)
	assert.Equal(t, "hash-new", rotated.TokenHash)
	assert.Equal(t, "5.6.7.8", rotated.IPAddress)
	assert.Equal(t, "new-agent", rotated.DeviceInfo)
	assert.True(t, rotated.ExpiresAt.After(rec.ExpiresAt))

	// The old value is gone and no duplicate row exists for the session.
	_, err = s.FindByOwnerAndHash(ctx, 1, "hash-old")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRotate_StaleValueRejected(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(newTestDB(t))

	rec, err := s.Create(ctx, 1, "hash-old", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)

	_, err = s.Rotate(ctx, rec.ID, "hash-old", "hash-new", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)

	// Second rotation presenting the already-replaced value must miss.
	_, err = s.Rotate(ctx, rec.ID, "hash-old", "hash-newer", "1.2.3.4", "agent", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRotate_UnknownRecord(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(newTestDB(t))

	_, err := s.Rotate(ctx, uuid.New(), "hash-x", "hash-y", "1.2.3.4", "agent", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRotate_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(newTestDB(t))

	rec, err := s.Create(ctx, 1, "hash-old", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Rotate(ctx, rec.ID, "hash-old", newHashFor(i), "1.2.3.4", "agent", time.Hour)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		}
	}
	assert.Equal(t, 1, wins)
}

// newHashFor builds a distinct replacement hash per rotation attempt.
func newHashFor(i int) string {
	return "hash-new-" + string(rune('a'+i))
}

func TestRevoke_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(newTestDB(t))

	_, err := s.Create(ctx, 1, "hash-a", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, 1, "hash-a"))
	_, err = s.FindByOwnerAndHash(ctx, 1, "hash-a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Revoking again is fine.
	require.NoError(t, s.Revoke(ctx, 1, "hash-a"))
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewTokenStore(db)

	_, err := s.Create(ctx, 1, "hash-live", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)
	expired, err := s.Create(ctx, 1, "hash-dead", "1.2.3.4", "agent", time.Hour)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("id = ?", expired.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	deleted, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.FindByOwnerAndHash(ctx, 1, "hash-live")
	assert.NoError(t, err)
}
