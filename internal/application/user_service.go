// internal/application/user_service.go
package application

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

type CreateUserInput struct {
	Name     string      `json:"nama" binding:"required,min=2,max=100"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=admin cashier"`
	Avatar   string      `json:"avatar" binding:"omitempty,max=500"`
}

type UpdateUserInput struct {
	Name     *string      `json:"nama" binding:"omitempty,min=2,max=100"`
	Email    *string      `json:"email" binding:"omitempty,email"`
	Password *string      `json:"password" binding:"omitempty,min=6"`
	Role     *domain.Role `json:"role" binding:"omitempty,oneof=admin cashier"`
	Avatar   *string      `json:"avatar" binding:"omitempty,max=500"`
	IsActive *bool        `json:"isActive"`
}

type UserService struct {
	users ports.UserRepository
	auth  *AuthService
}

func NewUserService(users ports.UserRepository, auth *AuthService) *UserService {
	return &UserService{users: users, auth: auth}
}

func (s *UserService) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, domain.Pagination, error) {
	users, total, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, errors.Trace(err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, domain.NewPagination(filter.Page, total), nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindUserByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, errors.NewNotValid(nil, "Name, email and password are required")
	}
	if len(in.Password) < 6 {
		return nil, errors.NewNotValid(nil, "Password must be at least 6 characters")
	}
	if in.Role == "" {
		in.Role = domain.RoleCashier
	}
	if !in.Role.Valid() {
		return nil, errors.NewNotValid(nil, "Role must be admin or cashier")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Annotate(err, "failed to hash password")
	}
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Avatar:       in.Avatar,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Infof("created %s user %d", user.Role, user.ID)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor *domain.User, id int64, in UpdateUserInput) (*domain.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	self := actor != nil && actor.ID == id
	if self && ((in.Role != nil && *in.Role != user.Role) || (in.IsActive != nil && !*in.IsActive)) {
		return nil, errors.NewNotValid(nil, "You cannot change your own role or status")
	}

	wasActive := user.IsActive
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, errors.NewNotValid(nil, "Role must be admin or cashier")
		}
		user.Role = *in.Role
	}
	if in.Avatar != nil {
		user.Avatar = *in.Avatar
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, errors.NewNotValid(nil, "Password must be at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Annotate(err, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}
	if user.Name == "" || user.Email == "" {
		return nil, errors.NewNotValid(nil, "Name and email cannot be empty")
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	if wasActive && !user.IsActive {
		s.logout(ctx, user.ID)
	}
	return user, nil
}

// Delete removes a user. Users referenced by orders or shifts are
// deactivated instead and deactivated reports true.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id int64) (deactivated bool, err error) {
	if actor != nil && actor.ID == id {
		return false, errors.NewNotValid(nil, "You cannot delete your own account")
	}
	err = s.users.DeleteUser(ctx, id)
	if errors.Is(err, errors.NotValid) {
		logger.Infof("user %d has history, deactivating instead of deleting", id)
		if err := s.users.SetUserActive(ctx, id, false); err != nil {
			return false, err
		}
		deactivated = true
	} else if err != nil {
		return false, err
	}
	s.logout(ctx, id)
	return deactivated, nil
}

func (s *UserService) ToggleStatus(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if actor != nil && actor.ID == id {
		return nil, errors.NewNotValid(nil, "You cannot change your own status")
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	if err := s.users.SetUserActive(ctx, id, user.IsActive); err != nil {
		return nil, err
	}
	if !user.IsActive {
		s.logout(ctx, id)
	}
	return user, nil
}

func (s *UserService) logout(ctx context.Context, id int64) {
	if s.auth == nil {
		return
	}
	if err := s.auth.ForceLogout(ctx, id); err != nil {
		logger.Warningf("%v", err)
	}
}
