// Package token signs and verifies the access/refresh token pair. Both
// tokens are HS256 JWTs carrying the owner and the client binding captured
// at issuance; they differ in TTL, signing secret and a typ claim so an
// access token can never be replayed as a refresh token.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired means the token verified but its embedded expiry has
	// passed. Callers use this to prompt re-login instead of rejecting
	// the request as malformed.
	ErrExpired = errors.New("token expired")

	// ErrMalformed covers bad signatures, wrong algorithms, wrong token
	// types and undecodable input.
	ErrMalformed = errors.New("token malformed")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims is the payload shared by access and refresh tokens.
type Claims struct {
	UserID    uint   `json:"uid"`
	IP        string `json:"ip"`
	Device    string `json:"device"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Config holds the process-wide signing settings. It is built once at
// startup and injected, so tests can substitute deterministic secrets
// and clocks.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Now defaults to time.Now; tests override it to freeze expiry.
	Now func() time.Time
}

type Codec struct {
	cfg Config
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both signing secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: TTLs must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg}, nil
}

// RefreshTTL is the lifetime stamped on newly issued refresh tokens; the
// token store uses the same value for the persisted expiry.
func (c *Codec) RefreshTTL() time.Duration {
	return c.cfg.RefreshTTL
}

func (c *Codec) SignAccessToken(userID uint, ip, device string) (string, error) {
	return c.sign(userID, ip, device, typeAccess, c.cfg.AccessSecret, c.cfg.AccessTTL)
}

func (c *Codec) SignRefreshToken(userID uint, ip, device string) (string, error) {
	return c.sign(userID, ip, device, typeRefresh, c.cfg.RefreshSecret, c.cfg.RefreshTTL)
}

func (c *Codec) sign(userID uint, ip, device, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := c.cfg.Now()
	claims := Claims{
		UserID:    userID,
		IP:        ip,
		Device:    device,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique jti keeps two tokens for the same client distinct even
			// when they are signed within the same second.
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", userID),
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken checks signature, expiry and token type of an access
// token. Pure function of the token and the configured clock.
func (c *Codec) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return c.verify(tokenStr, typeAccess, c.cfg.AccessSecret)
}

// VerifyRefreshToken checks signature, expiry and token type of a refresh
// token. ErrExpired and ErrMalformed are distinct so the orchestrator can
// tell "prompt re-login" apart from "reject".
func (c *Codec) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return c.verify(tokenStr, typeRefresh, c.cfg.RefreshSecret)
}

func (c *Codec) verify(tokenStr, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.cfg.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !parsed.Valid || claims.TokenType != typ {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Hash returns the hex SHA-256 of a token, the form in which refresh
// tokens are persisted and matched.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
