package notifications

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/logger"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, notification *models.Notification) error
	findByIDFn    func(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	listFn        func(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) ([]models.Notification, int64, error)
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (int64, error)
	markAllReadFn func(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	countUnreadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
	deleteFn      func(ctx context.Context, userID, notificationID uuid.UUID) (int64, error)
	activeIDsFn   func(ctx context.Context) ([]uuid.UUID, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	return f.createFn(ctx, notification)
}

func (f *fakeRepository) FindByID(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	return f.findByIDFn(ctx, userID, notificationID)
}

func (f *fakeRepository) List(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) ([]models.Notification, int64, error) {
	return f.listFn(ctx, userID, params, unreadOnly)
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (int64, error) {
	return f.markReadFn(ctx, userID, notificationID, at)
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	return f.markAllReadFn(ctx, userID, at)
}

func (f *fakeRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.countUnreadFn(ctx, userID)
}

func (f *fakeRepository) Delete(ctx context.Context, userID, notificationID uuid.UUID) (int64, error) {
	return f.deleteFn(ctx, userID, notificationID)
}

func (f *fakeRepository) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f.activeIDsFn(ctx)
}

type fakePublisher struct {
	channels []string
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) NotificationChannel(userID string) string {
	return "yori:channel:notifications:" + userID
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func newServiceWith(t *testing.T, repo Repository, publisher Publisher) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Publisher: publisher, Logger: testLogger()})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func TestEmitStoresAndPublishes(t *testing.T) {
	userID := uuid.New()
	var stored *models.Notification
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			notification.ID = uuid.New()
			stored = notification
			return nil
		},
	}
	publisher := &fakePublisher{}
	svc := newServiceWith(t, repo, publisher)

	svc.Emit(context.Background(), EmitInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order placed",
		Message: "Your order YORI-123 was placed",
	})

	if stored == nil {
		t.Fatal("expected notification stored")
	}
	if len(publisher.channels) != 1 {
		t.Fatalf("expected one publish, got %d", len(publisher.channels))
	}
	want := "yori:channel:notifications:" + userID.String()
	if publisher.channels[0] != want {
		t.Fatalf("expected channel %q, got %q", want, publisher.channels[0])
	}
}

func TestEmitSwallowsStoreErrors(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			return fmt.Errorf("insert failed")
		},
	}
	publisher := &fakePublisher{}
	svc := newServiceWith(t, repo, publisher)

	// Must not panic and must not publish.
	svc.Emit(context.Background(), EmitInput{
		UserID: uuid.New(),
		Type:   enums.NotificationTypeGeneral,
		Title:  "hello",
	})
	if len(publisher.channels) != 0 {
		t.Fatal("expected no publish after store failure")
	}
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			notification.ID = uuid.New()
			return nil
		},
	}
	svc := newServiceWith(t, repo, &fakePublisher{err: fmt.Errorf("redis down")})

	svc.Emit(context.Background(), EmitInput{
		UserID: uuid.New(),
		Type:   enums.NotificationTypeGeneral,
		Title:  "hello",
	})
}

func TestEmitDropsInvalidInput(t *testing.T) {
	created := false
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			created = true
			return nil
		},
	}
	svc := newServiceWith(t, repo, nil)

	svc.Emit(context.Background(), EmitInput{Type: enums.NotificationTypeGeneral})
	svc.Emit(context.Background(), EmitInput{UserID: uuid.New(), Type: "bogus"})
	if created {
		t.Fatal("expected invalid emits to be dropped")
	}
}

func TestMarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newServiceWith(t, repo, nil)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMarkAllReadReturnsAffected(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
			return 4, nil
		},
	}
	svc := newServiceWith(t, repo, nil)

	affected, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if affected != 4 {
		t.Fatalf("expected 4 affected, got %d", affected)
	}
}

func TestDeleteNotFound(t *testing.T) {
	repo := &fakeRepository{
		deleteFn: func(ctx context.Context, userID, notificationID uuid.UUID) (int64, error) {
			return 0, nil
		},
	}
	svc := newServiceWith(t, repo, nil)

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestEmitBroadcastFansOut(t *testing.T) {
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var created []uuid.UUID
	repo := &fakeRepository{
		activeIDsFn: func(ctx context.Context) ([]uuid.UUID, error) {
			return users, nil
		},
		createFn: func(ctx context.Context, notification *models.Notification) error {
			notification.ID = uuid.New()
			created = append(created, notification.UserID)
			return nil
		},
	}
	publisher := &fakePublisher{}
	svc := newServiceWith(t, repo, publisher)

	svc.EmitBroadcast(context.Background(), BroadcastInput{
		Type:    enums.NotificationTypeNewCoupon,
		Title:   "New coupon",
		Message: "SAVE10 is live",
	})
	if len(created) != len(users) {
		t.Fatalf("expected %d notifications, got %d", len(users), len(created))
	}
	if len(publisher.channels) != len(users) {
		t.Fatalf("expected %d publishes, got %d", len(users), len(publisher.channels))
	}
}

func TestEmitBroadcastRecipientLoadFailure(t *testing.T) {
	created := false
	repo := &fakeRepository{
		activeIDsFn: func(ctx context.Context) ([]uuid.UUID, error) {
			return nil, fmt.Errorf("query failed")
		},
		createFn: func(ctx context.Context, notification *models.Notification) error {
			created = true
			return nil
		},
	}
	svc := newServiceWith(t, repo, nil)

	// Must not panic and must not emit anything.
	svc.EmitBroadcast(context.Background(), BroadcastInput{
		Type:  enums.NotificationTypeNewCoupon,
		Title: "New coupon",
	})
	if created {
		t.Fatal("expected no emits when recipients cannot be loaded")
	}
}
