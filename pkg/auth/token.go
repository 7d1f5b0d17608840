package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tourhub/pkg/model"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	minSecretLength = 32
	issuer          = "tourhub"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrInvalidAlgorithm = errors.New("invalid signing algorithm")
	ErrWeakSecretKey    = errors.New("secret key must be at least 32 characters")
	ErrInvalidDuration  = errors.New("duration must be positive")
)

type Claims struct {
	UserID  string     `json:"uid"`
	Email   string     `json:"email,omitempty"`
	Role    model.Role `json:"role"`
	Tenants []string   `json:"tenants,omitempty"`
	Type    string     `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// TokenService issues and verifies HS256 access and refresh tokens. The two
// token kinds are signed with different secrets.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) < minSecretLength || len(cfg.RefreshSecret) < minSecretLength {
		return nil, ErrWeakSecretKey
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidDuration
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *TokenService) IssueAccess(user *model.User) (IssuedToken, error) {
	return s.issue(user, TokenTypeAccess, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

func (s *TokenService) IssueRefresh(user *model.User) (IssuedToken, error) {
	return s.issue(user, TokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *TokenService) issue(user *model.User, typ, secret string, ttl time.Duration) (IssuedToken, error) {
	now := s.now()
	expires := now.Add(ttl)

	tenants := make([]string, 0, len(user.Tenants))
	for _, t := range user.Tenants {
		tenants = append(tenants, t.Hex())
	}

	claims := &Claims{
		UserID:  user.ID.Hex(),
		Email:   user.Email,
		Role:    user.Role,
		Tenants: tenants,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return IssuedToken{Token: signed, ExpiresAt: expires}, nil
}

func (s *TokenService) ParseAccess(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TokenTypeAccess, s.cfg.AccessSecret)
}

func (s *TokenService) ParseRefresh(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *TokenService) parse(tokenString, typ, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAlgorithm
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 of an opaque token. Only hashes of
// refresh and password reset tokens are persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns n random bytes hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
