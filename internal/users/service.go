package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/pkg/config"
	"github.com/ninekrua/pos-backend/pkg/db"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/security"
)

const minPasswordLength = 8

// CreateUserInput captures a new staff account.
type CreateUserInput struct {
	Username string
	Password string
	Role     enums.UserRole
}

// Service manages staff accounts.
type Service interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	ResetPassword(ctx context.Context, id uuid.UUID) (string, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

type service struct {
	repo     Repository
	password config.PasswordConfig
}

// NewService wires the user service.
func NewService(repo Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, errors.New("users: repository required")
	}
	return &service{repo: repo, password: passwordCfg}, nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", input.Role)
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "ux_users_username") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "username %q is taken", username)
		}
		return nil, err
	}
	return user, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// ChangePassword verifies the current password before accepting the new one.
func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < minPasswordLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "current password is incorrect")
	}
	hash, err := security.HashPassword(next, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	return s.repo.Update(ctx, id, map[string]any{"password_hash": hash})
}

// ResetPassword issues a random temporary password for the user and returns
// it in plaintext, once, for the admin to hand over.
func (s *service) ResetPassword(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return "", err
	}
	temp, err := security.GenerateTempPassword(12)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating password")
	}
	hash, err := security.HashPassword(temp, s.password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"password_hash": hash}); err != nil {
		return "", err
	}
	return temp, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *service) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

// EnsureAdmin creates the bootstrap admin account when the user table is
// empty. Used on first start in development.
func (s *service) EnsureAdmin(ctx context.Context, username, password string) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = s.CreateUser(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Role:     enums.UserRoleAdmin,
	})
	return err
}
