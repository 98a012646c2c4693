package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record backing one refresh-token session.
// TokenHash is a SHA-256 of the issued token, so a leaked table does not
// leak usable credentials. Rotation replaces TokenHash and ExpiresAt in
// place; the row is never duplicated for the same session.
type RefreshToken struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_refresh_tokens_owner_hash" json:"user_id"`
	TokenHash  string    `gorm:"size:64;not null;uniqueIndex;index:idx_refresh_tokens_owner_hash" json:"-"`
	IPAddress  string    `gorm:"size:64" json:"ip_address"`
	DeviceInfo string    `gorm:"size:255" json:"device_info"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
}
