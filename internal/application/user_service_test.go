// internal/application/user_service_test.go
package application

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/auth"
)

func newUserService(ctrl *gomock.Controller) (*UserService, *ports.MockUserRepository, *ports.MockSessionStore) {
	users := ports.NewMockUserRepository(ctrl)
	sessions := ports.NewMockSessionStore(ctrl)
	clk := testclock.NewClock(testNow)
	authSvc := NewAuthService(users, sessions, auth.NewTokenManager("secret", time.Hour, clk), clk)
	return NewUserService(users, authSvc), users, sessions
}

func TestUserService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, users, _ := newUserService(ctrl)

	tests := []struct {
		name      string
		in        CreateUserInput
		mockSetup func()
		wantErr   bool
		errMsg    string
	}{
		{
			name: "Defaults to cashier",
			in:   CreateUserInput{Name: " New Cashier ", Email: " New@Coffee.com", Password: "secret1"},
			mockSetup: func() {
				users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, u *domain.User) error {
						if u.Email != "new@coffee.com" || u.Name != "New Cashier" || u.Role != domain.RoleCashier || !u.IsActive {
							t.Errorf("CreateUser() got %+v", u)
						}
						if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) != nil {
							t.Errorf("password not hashed")
						}
						u.ID = 12
						return nil
					})
			},
		},
		{
			name:      "Short password",
			in:        CreateUserInput{Name: "X Y", Email: "x@coffee.com", Password: "123"},
			mockSetup: func() {},
			wantErr:   true,
			errMsg:    "Password must be at least 6 characters",
		},
		{
			name:      "Bad role",
			in:        CreateUserInput{Name: "X Y", Email: "x@coffee.com", Password: "123456", Role: "owner"},
			mockSetup: func() {},
			wantErr:   true,
			errMsg:    "Role must be admin or cashier",
		},
		{
			name: "Duplicate email",
			in:   CreateUserInput{Name: "X Y", Email: "admin@coffee.com", Password: "123456"},
			mockSetup: func() {
				users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(errors.NewAlreadyExists(nil, "Email already exists"))
			},
			wantErr: true,
			errMsg:  "Email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			u, err := svc.Create(context.Background(), tt.in)
			if tt.wantErr {
				if err == nil || err.Error() != tt.errMsg {
					t.Errorf("Create() error = %v, errMsg %v", err, tt.errMsg)
				}
				return
			}
			if err != nil || u.ID != 12 {
				t.Errorf("Create() = %+v, %v", u, err)
			}
		})
	}
}

func TestUserService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, users, sessions := newUserService(ctrl)
	ctx := context.Background()

	t.Run("Admin cannot demote themselves", func(t *testing.T) {
		a := *admin
		users.EXPECT().FindUserByID(gomock.Any(), admin.ID).Return(&a, nil)
		_, err := svc.Update(ctx, admin, admin.ID, UpdateUserInput{Role: rolePtr(domain.RoleCashier)})
		if err == nil || err.Error() != "You cannot change your own role or status" {
			t.Errorf("Update() error = %v", err)
		}
	})

	t.Run("Deactivation logs the user out", func(t *testing.T) {
		c := *cashier
		users.EXPECT().FindUserByID(gomock.Any(), cashier.ID).Return(&c, nil)
		users.EXPECT().UpdateUser(gomock.Any(), gomock.Any()).Return(nil)
		sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier.ID, testNow, time.Hour).Return(nil)
		u, err := svc.Update(ctx, admin, cashier.ID, UpdateUserInput{IsActive: boolPtr(false), Name: strPtr("Renamed")})
		if err != nil || u.IsActive || u.Name != "Renamed" {
			t.Errorf("Update() = %+v, %v", u, err)
		}
	})

	t.Run("Blank name rejected", func(t *testing.T) {
		c := *cashier
		users.EXPECT().FindUserByID(gomock.Any(), cashier.ID).Return(&c, nil)
		_, err := svc.Update(ctx, admin, cashier.ID, UpdateUserInput{Name: strPtr("  ")})
		if err == nil || err.Error() != "Name and email cannot be empty" {
			t.Errorf("Update() error = %v", err)
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, users, sessions := newUserService(ctrl)
	ctx := context.Background()

	if _, err := svc.Delete(ctx, admin, admin.ID); err == nil || err.Error() != "You cannot delete your own account" {
		t.Errorf("Delete() self error = %v", err)
	}

	users.EXPECT().DeleteUser(gomock.Any(), cashier.ID).Return(errors.NewNotValid(nil, "referenced"))
	users.EXPECT().SetUserActive(gomock.Any(), cashier.ID, false).Return(nil)
	sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier.ID, gomock.Any(), gomock.Any()).Return(nil)
	deactivated, err := svc.Delete(ctx, admin, cashier.ID)
	if err != nil || !deactivated {
		t.Errorf("Delete() referenced user = %v, %v", deactivated, err)
	}

	users.EXPECT().DeleteUser(gomock.Any(), cashier2.ID).Return(nil)
	sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier2.ID, gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	deactivated, err = svc.Delete(ctx, admin, cashier2.ID)
	if err != nil || deactivated {
		t.Errorf("Delete() = %v, %v", deactivated, err)
	}

	users.EXPECT().DeleteUser(gomock.Any(), int64(42)).Return(errors.NewNotFound(nil, "User not found"))
	if _, err := svc.Delete(ctx, admin, 42); !errors.Is(err, errors.NotFound) {
		t.Errorf("Delete() missing user error = %v", err)
	}
}

func TestUserService_ToggleStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, users, sessions := newUserService(ctrl)
	ctx := context.Background()

	if _, err := svc.ToggleStatus(ctx, admin, admin.ID); err == nil || err.Error() != "You cannot change your own status" {
		t.Errorf("ToggleStatus() self error = %v", err)
	}

	c := *cashier
	users.EXPECT().FindUserByID(gomock.Any(), cashier.ID).Return(&c, nil)
	users.EXPECT().SetUserActive(gomock.Any(), cashier.ID, false).Return(nil)
	sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier.ID, gomock.Any(), gomock.Any()).Return(nil)
	u, err := svc.ToggleStatus(ctx, admin, cashier.ID)
	if err != nil || u.IsActive {
		t.Fatalf("ToggleStatus() = %+v, %v", u, err)
	}

	users.EXPECT().FindUserByID(gomock.Any(), cashier.ID).Return(u, nil)
	users.EXPECT().SetUserActive(gomock.Any(), cashier.ID, true).Return(nil)
	if u, err := svc.ToggleStatus(ctx, admin, cashier.ID); err != nil || !u.IsActive {
		t.Errorf("ToggleStatus() reactivate = %+v, %v", u, err)
	}
}

func TestUserService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc, users, _ := newUserService(ctrl)

	filter := domain.UserFilter{Page: domain.Page{Page: 2, Limit: 2}, Role: domain.RoleCashier}
	users.EXPECT().ListUsers(gomock.Any(), filter).Return([]*domain.User{cashier}, int64(3), nil)
	got, page, err := svc.List(context.Background(), filter)
	if err != nil || len(got) != 1 {
		t.Fatalf("List() = %v, %v", got, err)
	}
	if page.Total != 3 || page.CurrentPage != 2 || page.LastPage != 2 {
		t.Errorf("List() pagination = %+v", page)
	}
}
