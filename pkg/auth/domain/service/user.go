package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"shop/pkg/auth/domain/model"
	"shop/pkg/common/authmw"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrWrongOldPassword   = errors.New("incorrect old password")
)

// ValidationError carries a caller-facing message for a malformed request
// field. Transport surfaces it verbatim with a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validation(message string) error { return &ValidationError{Message: message} }

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type UpdateUserParams struct {
	Email *string
	Role  *string
}

type UserService interface {
	Register(ctx context.Context, username, email, password, role string) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (*model.User, error)
	ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

func NewUserService(repo model.UserRepository, passManager model.PasswordManager) UserService {
	return &userService{repo: repo, passManager: passManager, now: time.Now}
}

type userService struct {
	repo        model.UserRepository
	passManager model.PasswordManager
	now         func() time.Time
}

func (s *userService) Register(ctx context.Context, username, email, password, role string) (*model.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, validation("Username, email, and password are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, validation("Invalid email format")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, model.ErrUsernameTaken
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, model.ErrEmailTaken
	}

	hash, err := s.passManager.Hash(password)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = authmw.RoleCustomer
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, validation("Username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	ok, err := s.passManager.Check(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	lastLogin := s.now().UTC()
	user.LastLogin = &lastLogin
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.Find(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (*model.User, error) {
	user, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Email != nil {
		if !emailPattern.MatchString(*params.Email) {
			return nil, validation("Invalid email format")
		}
		existing, err := s.repo.FindByEmail(ctx, *params.Email)
		if err == nil && existing.ID != id {
			return nil, model.ErrEmailTaken
		}
		user.Email = *params.Email
	}
	if params.Role != nil {
		user.Role = *params.Role
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return validation("Old password and new password are required")
	}

	user, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.passManager.Check(user.PasswordHash, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongOldPassword
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.passManager.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.repo.Update(ctx, user)
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

var (
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

func validatePassword(password string) error {
	switch {
	case len(password) < 8:
		return validation("Password must be at least 8 characters long")
	case !upperPattern.MatchString(password):
		return validation("Password must contain at least one uppercase letter")
	case !lowerPattern.MatchString(password):
		return validation("Password must contain at least one lowercase letter")
	case !digitPattern.MatchString(password):
		return validation("Password must contain at least one digit")
	case !specialPattern.MatchString(password):
		return validation("Password must contain at least one special character")
	}
	return nil
}
