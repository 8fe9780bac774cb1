package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn               func(ctx context.Context, review *models.Review) error
	findByIDFn             func(ctx context.Context, reviewID uuid.UUID) (*models.Review, error)
	updateFieldsFn         func(ctx context.Context, reviewID uuid.UUID, updates map[string]any) error
	deleteFn               func(ctx context.Context, reviewID uuid.UUID) (int64, error)
	listByProductFn        func(ctx context.Context, productID, viewer uuid.UUID, params pagination.Params) ([]models.Review, int64, error)
	listByStatusFn         func(ctx context.Context, params pagination.Params, status enums.ReviewStatus) ([]models.Review, int64, error)
	ratingBreakdownFn      func(ctx context.Context, productID uuid.UUID) (map[int]int64, error)
	hasNonRejectedFn       func(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	hasCompletedPurchaseFn func(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ratingStatsFn          func(ctx context.Context, productID uuid.UUID) (float64, int, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, review *models.Review) error {
	return f.createFn(ctx, review)
}

func (f *fakeRepository) FindByID(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	return f.findByIDFn(ctx, reviewID)
}

func (f *fakeRepository) UpdateFields(ctx context.Context, reviewID uuid.UUID, updates map[string]any) error {
	return f.updateFieldsFn(ctx, reviewID, updates)
}

func (f *fakeRepository) Delete(ctx context.Context, reviewID uuid.UUID) (int64, error) {
	return f.deleteFn(ctx, reviewID)
}

func (f *fakeRepository) ListByProduct(ctx context.Context, productID, viewer uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	return f.listByProductFn(ctx, productID, viewer, params)
}

func (f *fakeRepository) RatingBreakdown(ctx context.Context, productID uuid.UUID) (map[int]int64, error) {
	return f.ratingBreakdownFn(ctx, productID)
}

func (f *fakeRepository) ListByStatus(ctx context.Context, params pagination.Params, status enums.ReviewStatus) ([]models.Review, int64, error) {
	return f.listByStatusFn(ctx, params, status)
}

func (f *fakeRepository) HasNonRejected(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return f.hasNonRejectedFn(ctx, userID, productID)
}

func (f *fakeRepository) HasCompletedPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return f.hasCompletedPurchaseFn(ctx, userID, productID)
}

func (f *fakeRepository) RatingStats(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	return f.ratingStatsFn(ctx, productID)
}

type ratingCall struct {
	productID uuid.UUID
	avg       float64
	count     int
}

type fakeRatings struct {
	calls []ratingCall
}

func (f *fakeRatings) SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error {
	f.calls = append(f.calls, ratingCall{productID: productID, avg: avg, count: count})
	return nil
}

type fakeEmitter struct {
	emitted []notifications.EmitInput
}

func (f *fakeEmitter) Emit(ctx context.Context, input notifications.EmitInput) {
	f.emitted = append(f.emitted, input)
}

func buyerRepo() *fakeRepository {
	return &fakeRepository{
		hasCompletedPurchaseFn: func(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
			return true, nil
		},
		hasNonRejectedFn: func(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, review *models.Review) error {
			review.ID = uuid.New()
			return nil
		},
		ratingStatsFn: func(ctx context.Context, productID uuid.UUID) (float64, int, error) {
			return 4.5, 2, nil
		},
		ratingBreakdownFn: func(ctx context.Context, productID uuid.UUID) (map[int]int64, error) {
			return map[int]int64{5: 1, 4: 1}, nil
		},
	}
}

func newTestService(t *testing.T, repo Repository) (Service, *fakeRatings, *fakeEmitter) {
	t.Helper()
	ratings := &fakeRatings{}
	emitter := &fakeEmitter{}
	svc, err := NewService(ServiceParams{Repo: repo, Ratings: ratings, Emitter: emitter})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, ratings, emitter
}

func TestCreateAutoApprovesAndRefreshesRating(t *testing.T) {
	repo := buyerRepo()
	svc, ratings, _ := newTestService(t, repo)
	productID := uuid.New()

	dto, err := svc.Create(context.Background(), uuid.New(), CreateInput{ProductID: productID, Rating: 5})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if dto.Status != enums.ReviewStatusApproved {
		t.Fatalf("expected auto-approved, got %s", dto.Status)
	}
	if len(ratings.calls) != 1 {
		t.Fatalf("expected one rating refresh, got %d", len(ratings.calls))
	}
	if ratings.calls[0].avg != 4.5 || ratings.calls[0].count != 2 {
		t.Fatalf("unexpected rating stats %+v", ratings.calls[0])
	}
}

func TestCreateRequiresCompletedPurchase(t *testing.T) {
	repo := buyerRepo()
	repo.hasCompletedPurchaseFn = func(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
		return false, nil
	}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{ProductID: uuid.New(), Rating: 4})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsDuplicateReview(t *testing.T) {
	repo := buyerRepo()
	repo.hasNonRejectedFn = func(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
		return true, nil
	}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{ProductID: uuid.New(), Rating: 4})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateValidatesRatingBounds(t *testing.T) {
	svc, _, _ := newTestService(t, buyerRepo())

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), uuid.New(), CreateInput{ProductID: uuid.New(), Rating: rating})
		if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for rating %d, got %v", rating, err)
		}
	}
}

func TestRejectNotifiesAuthorAndRefreshesRating(t *testing.T) {
	reviewID := uuid.New()
	authorID := uuid.New()
	productID := uuid.New()
	repo := buyerRepo()
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Review, error) {
		return &models.Review{ID: reviewID, UserID: authorID, ProductID: productID, Status: enums.ReviewStatusApproved}, nil
	}
	repo.updateFieldsFn = func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
		if updates["status"] != enums.ReviewStatusRejected {
			t.Fatalf("expected rejected status, got %v", updates)
		}
		return nil
	}
	svc, ratings, emitter := newTestService(t, repo)

	dto, err := svc.Reject(context.Background(), reviewID, "spam")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if dto.Status != enums.ReviewStatusRejected {
		t.Fatalf("expected rejected, got %s", dto.Status)
	}
	if len(ratings.calls) != 1 {
		t.Fatal("expected rating refresh after rejection")
	}
	if len(emitter.emitted) != 1 || emitter.emitted[0].Type != enums.NotificationTypeReviewRejected {
		t.Fatalf("expected review_rejected notification, got %+v", emitter.emitted)
	}
	if emitter.emitted[0].UserID != authorID {
		t.Fatal("notification must target the review author")
	}
}

func TestRejectTwiceRefused(t *testing.T) {
	repo := buyerRepo()
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Review, error) {
		return &models.Review{ID: id, Status: enums.ReviewStatusRejected}, nil
	}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Reject(context.Background(), uuid.New(), "")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListByProductPassesViewerAndBreakdown(t *testing.T) {
	viewerID := uuid.New()
	repo := buyerRepo()
	repo.listByProductFn = func(ctx context.Context, productID, viewer uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
		if viewer != viewerID {
			t.Fatalf("expected viewer %s, got %s", viewerID, viewer)
		}
		return []models.Review{{ID: uuid.New(), Rating: 5, Status: enums.ReviewStatusApproved}}, 1, nil
	}
	svc, _, _ := newTestService(t, repo)

	dto, err := svc.ListByProduct(context.Background(), viewerID, uuid.New(), pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected one review, got %d", len(dto.Items))
	}
	if dto.Breakdown[5] != 1 || dto.Breakdown[4] != 1 {
		t.Fatalf("unexpected breakdown %+v", dto.Breakdown)
	}
}

func TestUpdateOwnRejectsOtherAuthors(t *testing.T) {
	repo := buyerRepo()
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Review, error) {
		return &models.Review{ID: id, UserID: uuid.New(), Status: enums.ReviewStatusApproved}, nil
	}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.UpdateOwn(context.Background(), uuid.New(), uuid.New(), UpdateInput{Rating: 3})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign review, got %v", err)
	}
}

func TestUpdateOwnResubmitsRejectedReview(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	repo := buyerRepo()
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Review, error) {
		return &models.Review{ID: id, UserID: userID, ProductID: productID, Rating: 1, Status: enums.ReviewStatusRejected}, nil
	}
	repo.updateFieldsFn = func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
		if updates["status"] != enums.ReviewStatusApproved {
			t.Fatalf("expected resubmission to re-approve, got %v", updates)
		}
		return nil
	}
	svc, ratings, _ := newTestService(t, repo)

	dto, err := svc.UpdateOwn(context.Background(), userID, uuid.New(), UpdateInput{Rating: 4})
	if err != nil {
		t.Fatalf("update own: %v", err)
	}
	if dto.Status != enums.ReviewStatusApproved || dto.Rating != 4 {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if len(ratings.calls) != 1 {
		t.Fatal("expected rating refresh after update")
	}
}

func TestApproveRestoresRejectedReview(t *testing.T) {
	productID := uuid.New()
	repo := buyerRepo()
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Review, error) {
		return &models.Review{ID: id, ProductID: productID, Status: enums.ReviewStatusRejected}, nil
	}
	repo.updateFieldsFn = func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
		if updates["status"] != enums.ReviewStatusApproved {
			t.Fatalf("expected approved status, got %v", updates)
		}
		return nil
	}
	svc, ratings, _ := newTestService(t, repo)

	dto, err := svc.Approve(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if dto.Status != enums.ReviewStatusApproved {
		t.Fatalf("expected approved, got %s", dto.Status)
	}
	if len(ratings.calls) != 1 {
		t.Fatal("expected rating refresh after approval")
	}
}

func TestApproveTwiceRefused(t *testing.T) {
	repo := buyerRepo()
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.Review, error) {
		return &models.Review{ID: id, Status: enums.ReviewStatusApproved}, nil
	}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Approve(context.Background(), uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReplyRequiresBody(t *testing.T) {
	svc, _, _ := newTestService(t, buyerRepo())

	_, err := svc.Reply(context.Background(), uuid.New(), "   ")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
