package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	userserrors "tourhub/internal/users/errors"
	"tourhub/internal/users/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/model"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

const resetTokenBytes = 32

var errInvalidCredentials = apperrors.Unauthorized("Invalid email or password")

type AuthService interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)

	Register(ctx context.Context, req *RegisterRequest, tenant *primitive.ObjectID) (*Session, error)
	Login(ctx context.Context, req *LoginRequest) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, userID primitive.ObjectID) error

	Me(ctx context.Context, userID primitive.ObjectID) (*model.User, error)
	UpdateMe(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*model.User, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, req *ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error
}

type authService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	validator *validation.Validator
	cfg       *config.Config
	now       func() time.Time
	check     func(hash, password string) bool
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	validator *validation.Validator,
	cfg *config.Config,
) AuthService {
	return &authService{
		users:     users,
		tokens:    tokens,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
		check:     auth.CheckPassword,
	}
}

// Authenticate verifies an access token and reloads the user so that role
// changes and deactivation take effect before the token expires.
func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.Unauthorized("Token expired")
		}
		return nil, apperrors.Unauthorized("Invalid token")
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.Unauthorized("User no longer exists")
		}
		return nil, apperrors.Internal("Failed to authenticate", err)
	}
	if u.Status != model.UserStatusActive {
		return nil, apperrors.Unauthorized("Account is not active")
	}

	return &auth.Principal{
		UserID:  u.ID,
		Email:   u.Email,
		Role:    u.Role,
		Tenants: u.Tenants,
	}, nil
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest, tenant *primitive.ObjectID) (*Session, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Name = sanitizer.NormalizeName(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	hash, err := hashPassword("password", req.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        sanitizer.NormalizePhone(req.Phone),
		Role:         model.RoleCustomer,
		Status:       model.UserStatusActive,
	}
	if tenant != nil {
		u.Tenants = []primitive.ObjectID{*tenant}
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email already registered")
		}
		s.cfg.Log.Error("Failed to register user", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	s.cfg.Log.Info("User registered", "id", u.ID.Hex())
	return s.startSession(ctx, u)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			// Unknown emails pay for a compare too so response times match.
			s.check(auth.DummyHash(), req.Password)
			return nil, errInvalidCredentials
		}
		return nil, apperrors.Internal("Failed to log in", err)
	}
	if !s.check(u.PasswordHash, req.Password) {
		s.cfg.Log.Warn("Failed login attempt", "user_id", u.ID.Hex())
		return nil, errInvalidCredentials
	}
	if u.Status != model.UserStatusActive {
		return nil, apperrors.Forbidden("Account is " + string(u.Status))
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		s.cfg.Log.Warn("Failed to record login time", "user_id", u.ID.Hex(), "error", err)
	}
	u.LastLoginAt = &now

	return s.startSession(ctx, u)
}

func (s *authService) issuePair(u *model.User) (*Session, error) {
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue access token", err)
	}
	refresh, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue refresh token", err)
	}
	return &Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) startSession(ctx context.Context, u *model.User) (*Session, error) {
	session, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshTokenHash(ctx, u.ID, auth.HashToken(session.RefreshToken.Token)); err != nil {
		return nil, apperrors.Internal("Failed to store session", err)
	}
	return session, nil
}

// Refresh rotates the refresh token. Presenting a token that is no longer
// the stored one revokes the session entirely.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("Refresh token required")
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.Unauthorized("Invalid refresh token")
		}
		return nil, apperrors.Internal("Failed to refresh session", err)
	}
	if u.Status != model.UserStatusActive {
		return nil, apperrors.Unauthorized("Account is not active")
	}

	oldHash := auth.HashToken(refreshToken)
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != oldHash {
		s.revoke(ctx, u.ID, "refresh token mismatch")
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	session, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	rotated, err := s.users.RotateRefreshTokenHash(ctx, u.ID, oldHash, auth.HashToken(session.RefreshToken.Token))
	if err != nil {
		return nil, apperrors.Internal("Failed to rotate refresh token", err)
	}
	if !rotated {
		s.revoke(ctx, u.ID, "concurrent refresh token reuse")
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}
	return session, nil
}

func (s *authService) revoke(ctx context.Context, id primitive.ObjectID, reason string) {
	s.cfg.Log.Warn("Revoking refresh token", "user_id", id.Hex(), "reason", reason)
	if err := s.users.SetRefreshTokenHash(ctx, id, ""); err != nil {
		s.cfg.Log.Error("Failed to revoke refresh token", "user_id", id.Hex(), "error", err)
	}
}

func (s *authService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.SetRefreshTokenHash(ctx, userID, ""); err != nil && !errors.Is(err, userserrors.ErrNotFound) {
		return apperrors.Internal("Failed to log out", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID primitive.ObjectID) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID.Hex())
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to retrieve profile", err)
	}
	return u, nil
}

func (s *authService) UpdateMe(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*model.User, error) {
	if req.Preferences != nil {
		req.Preferences.Currency = sanitizer.NormalizeCurrency(req.Preferences.Currency)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = sanitizer.NormalizeName(*req.Name)
	}
	if req.Phone != nil {
		set["phone"] = sanitizer.NormalizePhone(*req.Phone)
	}
	if req.Avatar != nil {
		set["avatar"] = *req.Avatar
	}
	if req.Preferences != nil {
		set["preferences"] = *req.Preferences
	}
	if len(set) == 0 {
		return s.Me(ctx, userID)
	}

	u, err := s.users.Update(ctx, userID, set)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to update profile", err)
	}
	return u, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID primitive.ObjectID, req *ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !s.check(u.PasswordHash, req.CurrentPassword) {
		return apperrors.Unauthorized("Current password is incorrect")
	}

	hash, err := hashPassword("newPassword", req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.Internal("Failed to change password", err)
	}

	s.cfg.Log.Info("Password changed", "user_id", userID.Hex())
	return nil
}

// ForgotPassword never reveals whether the address is registered.
func (s *authService) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to start password reset", err)
	}

	token, err := auth.RandomToken(resetTokenBytes)
	if err != nil {
		return apperrors.Internal("Failed to generate reset token", err)
	}
	expires := s.now().UTC().Add(s.cfg.PasswordResetTTL)
	if err := s.users.SetPasswordResetToken(ctx, u.ID, auth.HashToken(token), expires); err != nil {
		return apperrors.Internal("Failed to start password reset", err)
	}

	s.cfg.Log.Info("Password reset requested", "user_id", u.ID.Hex(), "expires_at", expires)
	if !s.cfg.IsProduction() {
		s.cfg.Log.Debug("Password reset token issued", "user_id", u.ID.Hex(), "token", token)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	u, err := s.users.FindByResetTokenHash(ctx, auth.HashToken(req.Token), s.now().UTC())
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.InvalidInput("Reset token is invalid or has expired")
		}
		return apperrors.Internal("Failed to reset password", err)
	}

	hash, err := hashPassword("password", req.Password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperrors.Internal("Failed to reset password", err)
	}

	if u.Status == model.UserStatusPending {
		if _, err := s.users.Update(ctx, u.ID, bson.M{"status": model.UserStatusActive}); err != nil {
			s.cfg.Log.Warn("Failed to activate invited user", "user_id", u.ID.Hex(), "error", err)
		}
	}

	s.cfg.Log.Info("Password reset completed", "user_id", u.ID.Hex())
	return nil
}

func hashPassword(field, password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", validation.Single(field, field+" must be at most 72 bytes")
	}
	if err != nil {
		return "", apperrors.Internal("Failed to hash password", err)
	}
	return hash, nil
}
