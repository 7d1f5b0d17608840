package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	userserrors "tourhub/internal/users/errors"
	usersrepository "tourhub/internal/users/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	"tourhub/pkg/model"
)

const (
	ServiceName    = "tourhubctl"
	minPasswordLen = 8
	commandTimeout = 30 * time.Second
)

// accounts is the slice of the user repository the CLI needs.
type accounts interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.User, error)
}

var (
	email    string
	name     string
	password string
	role     string
	tenants  []string

	rootCmd = &cobra.Command{
		Use:          "tourhubctl",
		Short:        "Administrative tasks for a TourHub deployment",
		SilenceUsage: true,
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Create a back-office user",
		Long: `create-admin inserts an active staff user with a bcrypt-hashed password.
The password may also be passed in the TOURHUB_ADMIN_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("TOURHUB_ADMIN_PASSWORD")
			}
			return withAccounts(cmd.Context(), func(ctx context.Context, repo accounts) error {
				u, err := createAdmin(ctx, repo, email, name, password, model.Role(role), tenants)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with role %s\n", u.Email, u.ID.Hex(), u.Role)
				return nil
			})
		},
	}

	setRoleCmd = &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAccounts(cmd.Context(), func(ctx context.Context, repo accounts) error {
				u, err := setRole(ctx, repo, email, model.Role(role), tenants)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
				return nil
			})
		},
	}
)

func init() {
	createAdminCmd.Flags().StringVar(&email, "email", "", "email address (required)")
	createAdminCmd.Flags().StringVar(&name, "name", "", "display name (required)")
	createAdminCmd.Flags().StringVar(&password, "password", "", "initial password")
	createAdminCmd.Flags().StringVar(&role, "role", string(model.RoleSuperAdmin), "staff role")
	createAdminCmd.Flags().StringSliceVar(&tenants, "tenant", nil, "tenant id the user manages (repeatable)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("name")

	setRoleCmd.Flags().StringVar(&email, "email", "", "email address (required)")
	setRoleCmd.Flags().StringVar(&role, "role", "", "new role (required)")
	setRoleCmd.Flags().StringSliceVar(&tenants, "tenant", nil, "replace the managed tenants (repeatable)")
	_ = setRoleCmd.MarkFlagRequired("email")
	_ = setRoleCmd.MarkFlagRequired("role")

	rootCmd.AddCommand(createAdminCmd, setRoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withAccounts(parent context.Context, fn func(ctx context.Context, repo accounts) error) error {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()
	return fn(ctx, usersrepository.NewMongoUserRepository(cfg))
}

func createAdmin(ctx context.Context, repo accounts, email, name, password string, role model.Role, tenantRefs []string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validator.New().Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, errors.New("name must be at least 2 characters")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if !role.IsStaff() {
		return nil, fmt.Errorf("role %q is not a staff role", role)
	}
	tenantIDs, err := parseTenants(role, tenantRefs)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
		Tenants:      tenantIDs,
	}
	if err := repo.Create(ctx, u); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, fmt.Errorf("a user with email %s already exists", email)
		}
		return nil, err
	}
	return u, nil
}

func setRole(ctx context.Context, repo accounts, email string, role model.Role, tenantRefs []string) (*model.User, error) {
	if !role.Valid() || role == model.RoleGuest {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	u, err := repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}

	set := bson.M{"role": role}
	if len(tenantRefs) > 0 || role == model.RoleSuperAdmin || role == model.RoleCustomer {
		tenantIDs, err := parseTenants(role, tenantRefs)
		if err != nil {
			return nil, err
		}
		set["tenants"] = tenantIDs
	}
	return repo.Update(ctx, u.ID, set)
}

// parseTenants rejects tenant scoping for roles that ignore it.
func parseTenants(role model.Role, refs []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(refs))
	if len(refs) > 0 && (role == model.RoleSuperAdmin || role == model.RoleCustomer) {
		return nil, fmt.Errorf("role %s cannot be scoped to tenants", role)
	}
	for _, ref := range refs {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(ref))
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id %q", ref)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
