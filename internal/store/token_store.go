// Package store persists refresh-token records. Rotation is a single
// conditional UPDATE keyed on (record id, current token hash): of two
// concurrent rotations against the same prior value, exactly one matches
// the row and the other observes zero rows affected.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcommerce/auth-service/internal/apperrors"
	"github.com/microcommerce/auth-service/internal/models"
	"gorm.io/gorm"
)

type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Create inserts a fresh record for an issued refresh token. Failures are
// storage faults, not domain errors.
func (s *TokenStore) Create(ctx context.Context, userID uint, tokenHash, ip, device string, ttl time.Duration) (*models.RefreshToken, error) {
	rec := &models.RefreshToken{
		ID:         uuid.New(),
		UserID:     userID,
		TokenHash:  tokenHash,
		IPAddress:  ip,
		DeviceInfo: device,
		ExpiresAt:  time.Now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, storeErr(err)
	}
	return rec, nil
}

// FindByOwnerAndHash looks up the record for (owner, token hash). A miss
// is apperrors.ErrNotFound; anything else is a storage fault.
func (s *TokenStore) FindByOwnerAndHash(ctx context.Context, userID uint, tokenHash string) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return &rec, nil
}

// Rotate atomically replaces the token hash, client binding and expiry of
// the record currently holding currentHash. If the record was already
// rotated away (or never existed) it returns apperrors.ErrNotFound; it
// never creates a new row.
func (s *TokenStore) Rotate(ctx context.Context, recordID uuid.UUID, currentHash, newHash, ip, device string, ttl time.Duration) (*models.RefreshToken, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND token_hash = ?", recordID, currentHash).
		Updates(map[string]interface{}{
			"token_hash":  newHash,
			"ip_address":  ip,
			"device_info": device,
			"expires_at":  time.Now().Add(ttl),
		})
	if res.Error != nil {
		return nil, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	var rec models.RefreshToken
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", recordID).Error; err != nil {
		return nil, storeErr(err)
	}
	return &rec, nil
}

// Revoke deletes the record matching (owner, token hash). Deleting a
// record that no longer exists is not an error, so logout is idempotent.
func (s *TokenStore) Revoke(ctx context.Context, userID uint, tokenHash string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Delete(&models.RefreshToken{}).Error
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// DeleteExpired sweeps records whose expiry has passed. Expiry is checked
// at refresh time regardless; this only keeps the table small.
func (s *TokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, storeErr(res.Error)
	}
	return res.RowsAffected, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
}
