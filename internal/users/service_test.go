package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn         func(ctx context.Context, user *models.User) error
	findByIDFn       func(ctx context.Context, userID uuid.UUID) (*models.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*models.User, error)
	updateFieldsFn   func(ctx context.Context, userID uuid.UUID, updates map[string]any) error
	listFn           func(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.User, int64, error)
	touchLastLoginFn func(ctx context.Context, userID uuid.UUID, at time.Time) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, user *models.User) error {
	return f.createFn(ctx, user)
}

func (f *fakeRepository) FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return f.findByIDFn(ctx, userID)
}

func (f *fakeRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.findByEmailFn(ctx, email)
}

func (f *fakeRepository) UpdateFields(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	return f.updateFieldsFn(ctx, userID, updates)
}

func (f *fakeRepository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.User, int64, error) {
	return f.listFn(ctx, params, filters)
}

func (f *fakeRepository) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return f.touchLastLoginFn(ctx, userID, at)
}

type fakeEmitter struct {
	emitted []notifications.EmitInput
}

func (f *fakeEmitter) Emit(ctx context.Context, input notifications.EmitInput) {
	f.emitted = append(f.emitted, input)
}

func newTestService(t *testing.T, repo Repository) (Service, *fakeEmitter) {
	t.Helper()
	emitter := &fakeEmitter{}
	svc, err := NewService(ServiceParams{Repo: repo, Emitter: emitter})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, emitter
}

func customerRepo(user *models.User) *fakeRepository {
	return &fakeRepository{
		findByIDFn: func(ctx context.Context, userID uuid.UUID) (*models.User, error) {
			if user == nil || user.ID != userID {
				return nil, gorm.ErrRecordNotFound
			}
			clone := *user
			return &clone, nil
		},
		updateFieldsFn: func(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
			if name, ok := updates["full_name"].(string); ok {
				user.FullName = name
			}
			if status, ok := updates["status"].(enums.UserStatus); ok {
				user.Status = status
			}
			if role, ok := updates["role"].(enums.UserRole); ok {
				user.Role = role
			}
			return nil
		},
	}
}

func TestUpdateProfileTrimsAndValidates(t *testing.T) {
	user := &models.User{ID: uuid.New(), FullName: "Linh", Role: enums.UserRoleCustomer, Status: enums.UserStatusVerified}
	svc, _ := newTestService(t, customerRepo(user))

	name := "  Linh Tran  "
	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{FullName: &name})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if dto.FullName != "Linh Tran" {
		t.Fatalf("expected trimmed name, got %q", dto.FullName)
	}

	empty := "   "
	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{FullName: &empty})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBanNotifiesUser(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer, Status: enums.UserStatusVerified}
	svc, emitter := newTestService(t, customerRepo(user))

	dto, err := svc.Ban(context.Background(), user.ID, "fraudulent orders")
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if dto.Status != enums.UserStatusBanned {
		t.Fatalf("expected banned, got %s", dto.Status)
	}
	if len(emitter.emitted) != 1 || emitter.emitted[0].Type != enums.NotificationTypeAccountBanned {
		t.Fatalf("expected account_banned notification, got %+v", emitter.emitted)
	}
}

func TestBanTwiceRefused(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer, Status: enums.UserStatusBanned}
	svc, _ := newTestService(t, customerRepo(user))

	_, err := svc.Ban(context.Background(), user.ID, "")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestBanAdminRefused(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleAdmin, Status: enums.UserStatusVerified}
	svc, _ := newTestService(t, customerRepo(user))

	_, err := svc.Ban(context.Background(), user.ID, "")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnbanRequiresBannedState(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer, Status: enums.UserStatusVerified}
	svc, _ := newTestService(t, customerRepo(user))

	_, err := svc.Unban(context.Background(), user.ID)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSetRoleValidatesRole(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer, Status: enums.UserStatusVerified}
	svc, _ := newTestService(t, customerRepo(user))

	dto, err := svc.SetRole(context.Background(), user.ID, enums.UserRoleStaff)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if dto.Role != enums.UserRoleStaff {
		t.Fatalf("expected staff, got %s", dto.Role)
	}

	_, err = svc.SetRole(context.Background(), user.ID, "supervisor")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
