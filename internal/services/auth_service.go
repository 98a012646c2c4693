package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/microcommerce/auth-service/internal/apperrors"
	"github.com/microcommerce/auth-service/internal/dto"
	"github.com/microcommerce/auth-service/internal/events"
	"github.com/microcommerce/auth-service/internal/models"
	"github.com/microcommerce/auth-service/internal/security"
	"github.com/microcommerce/auth-service/internal/token"
)

const publishTimeout = 5 * time.Second

// UserDirectory is the slice of the user service the orchestrator needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, username, email, passwordHash string) (*models.User, error)
}

// TokenStore persists refresh-token records. Rotate must be atomic: two
// concurrent calls against the same currentHash may not both succeed.
type TokenStore interface {
	Create(ctx context.Context, userID uint, tokenHash, ip, device string, ttl time.Duration) (*models.RefreshToken, error)
	FindByOwnerAndHash(ctx context.Context, userID uint, tokenHash string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, recordID uuid.UUID, currentHash, newHash, ip, device string, ttl time.Duration) (*models.RefreshToken, error)
	Revoke(ctx context.Context, userID uint, tokenHash string) error
}

// AuthService composes the credential verifier, token codec and token
// store into the register/login/refresh operations and owns the refresh
// rotation protocol.
type AuthService struct {
	users      UserDirectory
	tokens     TokenStore
	codec      *token.Codec
	publisher  events.Publisher
	bindClient bool
}

func NewAuthService(users UserDirectory, tokens TokenStore, codec *token.Codec, publisher events.Publisher, bindClient bool) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		publisher:  publisher,
		bindClient: bindClient,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest, ip, device string) (*dto.AuthResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrConflict
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, req.Username, req.Email, hash)
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, user, ip, device)
	if err != nil {
		return nil, err
	}

	s.publishAsync(events.TopicUserRegistration, events.UserEvent{UserID: user.ID, Username: user.Username})

	return authResponse(user, pair), nil
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, ip, device string) (*dto.AuthResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same error as a password mismatch, so callers cannot
			// enumerate registered emails.
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !security.CheckPassword(req.Password, user.Password) {
		return nil, apperrors.ErrUnauthorized
	}

	pair, err := s.issueTokens(ctx, user, ip, device)
	if err != nil {
		return nil, err
	}

	s.publishAsync(events.TopicUserLogin, events.UserEvent{UserID: user.ID, Username: user.Username})

	return authResponse(user, pair), nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The persisted
// record is rotated in place under a conditional update, so a replayed or
// concurrently refreshed token loses the race and is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ip, device string) (*dto.TokenPairResponse, error) {
	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		// Expired and malformed both end as Unauthorized at this
		// boundary; the distinction only matters for logging.
		slog.Debug("refresh token rejected by codec", "reason", err)
		return nil, apperrors.ErrUnauthorized
	}

	rec, err := s.tokens.FindByOwnerAndHash(ctx, claims.UserID, token.Hash(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, apperrors.ErrUnauthorized
	}
	if s.bindClient && (rec.IPAddress != ip || rec.DeviceInfo != device) {
		slog.Warn("refresh rejected: client binding mismatch",
			"user_id", claims.UserID, "ip", ip, "stored_ip", rec.IPAddress)
		return nil, apperrors.ErrUnauthorized
	}

	newRefresh, err := s.codec.SignRefreshToken(claims.UserID, ip, device)
	if err != nil {
		return nil, err
	}

	_, err = s.tokens.Rotate(ctx, rec.ID, rec.TokenHash, token.Hash(newRefresh), ip, device, s.codec.RefreshTTL())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost a concurrent rotation or the value was replayed
			// after a successful refresh.
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	accessToken, err := s.codec.SignAccessToken(claims.UserID, ip, device)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

// Logout revokes the session backing the presented refresh token.
// Idempotent: revoking an unknown or already-rotated token succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		return apperrors.ErrUnauthorized
	}
	return s.tokens.Revoke(ctx, claims.UserID, token.Hash(refreshToken))
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User, ip, device string) (*dto.TokenPairResponse, error) {
	accessToken, err := s.codec.SignAccessToken(user.ID, ip, device)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.SignRefreshToken(user.ID, ip, device)
	if err != nil {
		return nil, err
	}

	if _, err := s.tokens.Create(ctx, user.ID, token.Hash(refreshToken), ip, device, s.codec.RefreshTTL()); err != nil {
		return nil, err
	}

	return &dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// publishAsync delivers an event without blocking or failing the caller.
func (s *AuthService) publishAsync(topic string, event events.UserEvent) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, topic, event); err != nil {
			slog.Error("event publish failed", "topic", topic, "user_id", event.UserID, "error", err)
		}
	}()
}

func authResponse(user *models.User, pair *dto.TokenPairResponse) *dto.AuthResponse {
	return &dto.AuthResponse{
		User: dto.UserResponse{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
		Tokens: *pair,
	}
}
