package service

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	userserrors "tourhub/internal/users/errors"
	"tourhub/internal/users/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/model"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

// AttractionLookup resolves wishlist entries.
type AttractionLookup interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Attraction, error)
}

type UserService interface {
	List(ctx context.Context, actor *auth.Principal, q ListQuery) ([]*model.User, int64, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*model.User, error)
	Create(ctx context.Context, actor *auth.Principal, req *CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, actor *auth.Principal, id string, req *UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, actor *auth.Principal, id string) error

	Wishlist(ctx context.Context, userID primitive.ObjectID) ([]*model.Attraction, error)
	AddToWishlist(ctx context.Context, userID primitive.ObjectID, attractionID string) error
	RemoveFromWishlist(ctx context.Context, userID primitive.ObjectID, attractionID string) error
}

type userService struct {
	repo        repository.UserRepository
	attractions AttractionLookup
	validator   *validation.Validator
	cfg         *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	attractions AttractionLookup,
	validator *validation.Validator,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:        repo,
		attractions: attractions,
		validator:   validator,
		cfg:         cfg,
	}
}

func (s *userService) mapError(err error, id, action string) error {
	switch {
	case errors.Is(err, userserrors.ErrNotFound):
		return apperrors.NotFoundWithID("User", id)
	case errors.Is(err, userserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid user ID format")
	case errors.Is(err, userserrors.ErrDuplicateEmail):
		return apperrors.Conflict("Email already registered")
	}
	s.cfg.Log.Error("User repository failure",
		"action", action,
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to "+action, err)
}

// scopeTenants narrows a brand admin to the tenants they administer.
func scopeTenants(actor *auth.Principal, requested string) ([]primitive.ObjectID, error) {
	var tenants []primitive.ObjectID
	if requested != "" {
		oid, err := primitive.ObjectIDFromHex(requested)
		if err != nil {
			return nil, apperrors.InvalidInput("Invalid tenant ID format")
		}
		if !actor.CanManageTenant(oid) {
			return nil, apperrors.Forbidden("You do not manage this tenant")
		}
		tenants = []primitive.ObjectID{oid}
	}
	if tenants == nil && actor.Role != model.RoleSuperAdmin {
		if len(actor.Tenants) == 0 {
			return nil, apperrors.Forbidden("No tenants assigned")
		}
		tenants = actor.Tenants
	}
	return tenants, nil
}

func (s *userService) List(ctx context.Context, actor *auth.Principal, q ListQuery) ([]*model.User, int64, error) {
	if q.Role != "" && !q.Role.Valid() {
		return nil, 0, validation.Single("role", "role is not recognised")
	}
	tenants, err := scopeTenants(actor, q.Tenant)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.UserFilter{
		Role:    q.Role,
		Status:  q.Status,
		Search:  q.Search,
		Tenants: tenants,
		Sort:    q.Sort,
	}
	skip := int64((q.Page - 1) * q.Limit)

	var (
		count           int64
		users           []*model.User
		errCount, errFn error
		wg              sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if count, err = s.repo.Count(ctx, filter); err != nil {
			s.cfg.Log.Error("Failed to count users", "error", err)
			errCount = apperrors.Internal("Failed to count users", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if users, err = s.repo.FindAll(ctx, filter, q.Limit, skip); err != nil {
			s.cfg.Log.Error("Failed to list users",
				"limit", q.Limit,
				"skip", skip,
				"error", err,
			)
			errFn = apperrors.Internal("Failed to retrieve users", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFn != nil {
		return nil, 0, errFn
	}
	return users, count, nil
}

func (s *userService) GetByID(ctx context.Context, actor *auth.Principal, id string) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "retrieve user")
	}
	if !canSee(actor, u) {
		return nil, apperrors.NotFoundWithID("User", id)
	}
	return u, nil
}

// canSee reports whether a brand admin shares a tenant with u.
func canSee(actor *auth.Principal, u *model.User) bool {
	if actor.Role == model.RoleSuperAdmin {
		return true
	}
	for _, t := range u.Tenants {
		if actor.CanManageTenant(t) {
			return true
		}
	}
	return false
}

func (s *userService) checkGrant(actor *auth.Principal, role model.Role) error {
	if !role.Valid() {
		return validation.Single("role", "role is not recognised")
	}
	if role == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		return apperrors.Forbidden("Only a super admin may grant the super-admin role")
	}
	return nil
}

func (s *userService) parseTenants(actor *auth.Principal, ids []string) ([]primitive.ObjectID, error) {
	tenants, err := mongodb.ParseIDs(ids)
	if err != nil {
		return nil, validation.Single("tenants", "tenants must be valid IDs")
	}
	for _, t := range tenants {
		if !actor.CanManageTenant(t) {
			return nil, apperrors.Forbidden("You do not manage tenant " + t.Hex())
		}
	}
	return tenants, nil
}

func (s *userService) Create(ctx context.Context, actor *auth.Principal, req *CreateUserRequest) (*model.User, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Name = sanitizer.NormalizeName(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := s.checkGrant(actor, req.Role); err != nil {
		return nil, err
	}
	tenants, err := s.parseTenants(actor, req.Tenants)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 && actor.Role != model.RoleSuperAdmin {
		tenants = actor.Tenants
	}

	status := req.Status
	password := req.Password
	if password == "" {
		if password, err = auth.RandomToken(24); err != nil {
			return nil, apperrors.Internal("Failed to generate password", err)
		}
		status = model.UserStatusPending
	}
	if status == "" {
		status = model.UserStatusActive
	}
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, validation.Single("password", "password must be at most 72 bytes")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        sanitizer.NormalizePhone(req.Phone),
		Role:         req.Role,
		Status:       status,
		Tenants:      tenants,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, s.mapError(err, req.Email, "create user")
	}

	s.cfg.Log.Info("User created",
		"id", u.ID.Hex(),
		"role", u.Role,
		"status", u.Status,
		"created_by", actor.UserID.Hex(),
	)
	return u, nil
}

func (s *userService) Update(ctx context.Context, actor *auth.Principal, id string, req *UpdateUserRequest) (*model.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if existing.Role == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		return nil, apperrors.Forbidden("Only a super admin may modify a super admin")
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = sanitizer.NormalizeName(*req.Name)
	}
	if req.Phone != nil {
		set["phone"] = sanitizer.NormalizePhone(*req.Phone)
	}
	if req.Role != nil {
		if err := s.checkGrant(actor, *req.Role); err != nil {
			return nil, err
		}
		set["role"] = *req.Role
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.Tenants != nil {
		tenants, err := s.parseTenants(actor, req.Tenants)
		if err != nil {
			return nil, err
		}
		set["tenants"] = tenants
	}
	if len(set) == 0 {
		return existing, nil
	}

	updated, err := s.repo.Update(ctx, existing.ID, set)
	if err != nil {
		return nil, s.mapError(err, id, "update user")
	}
	if req.Status != nil && *req.Status != model.UserStatusActive {
		if err := s.repo.SetRefreshTokenHash(ctx, existing.ID, ""); err != nil {
			s.cfg.Log.Warn("Failed to revoke refresh token", "id", id, "error", err)
		}
	}

	s.cfg.Log.Info("User updated", "id", id, "updated_by", actor.UserID.Hex())
	return updated, nil
}

// Delete deactivates the account and revokes its refresh token. Documents
// are kept so bookings keep a valid owner.
func (s *userService) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	existing, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return err
	}
	if existing.ID == actor.UserID {
		return apperrors.InvalidInput("You cannot delete your own account")
	}
	if existing.Role == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		return apperrors.Forbidden("Only a super admin may delete a super admin")
	}

	if _, err := s.repo.Update(ctx, existing.ID, bson.M{"status": model.UserStatusInactive}); err != nil {
		return s.mapError(err, id, "delete user")
	}
	if err := s.repo.SetRefreshTokenHash(ctx, existing.ID, ""); err != nil {
		return s.mapError(err, id, "delete user")
	}

	s.cfg.Log.Info("User deactivated", "id", id, "deleted_by", actor.UserID.Hex())
	return nil
}

func (s *userService) Wishlist(ctx context.Context, userID primitive.ObjectID) ([]*model.Attraction, error) {
	u, err := s.repo.FindByID(ctx, userID.Hex())
	if err != nil {
		return nil, s.mapError(err, userID.Hex(), "retrieve wishlist")
	}
	if len(u.Wishlist) == 0 {
		return []*model.Attraction{}, nil
	}
	items, err := s.attractions.FindByIDs(ctx, u.Wishlist)
	if err != nil {
		s.cfg.Log.Error("Failed to populate wishlist", "user_id", userID.Hex(), "error", err)
		return nil, apperrors.Internal("Failed to retrieve wishlist", err)
	}
	return items, nil
}

func (s *userService) AddToWishlist(ctx context.Context, userID primitive.ObjectID, attractionID string) error {
	oid, err := primitive.ObjectIDFromHex(attractionID)
	if err != nil {
		return apperrors.InvalidInput("Invalid attraction ID format")
	}
	found, err := s.attractions.FindByIDs(ctx, []primitive.ObjectID{oid})
	if err != nil {
		return apperrors.Internal("Failed to look up attraction", err)
	}
	if len(found) == 0 {
		return apperrors.NotFoundWithID("Attraction", attractionID)
	}
	if err := s.repo.AddToWishlist(ctx, userID, oid); err != nil {
		return s.mapError(err, userID.Hex(), "update wishlist")
	}
	return nil
}

func (s *userService) RemoveFromWishlist(ctx context.Context, userID primitive.ObjectID, attractionID string) error {
	oid, err := primitive.ObjectIDFromHex(attractionID)
	if err != nil {
		return apperrors.InvalidInput("Invalid attraction ID format")
	}
	if err := s.repo.RemoveFromWishlist(ctx, userID, oid); err != nil {
		return s.mapError(err, userID.Hex(), "update wishlist")
	}
	return nil
}
