package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yorishop/yori-backend/internal/notifications"
	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
	pkgerrors "github.com/yorishop/yori-backend/pkg/errors"
	"github.com/yorishop/yori-backend/pkg/pagination"
	"github.com/yorishop/yori-backend/pkg/types"
)

const maxCommentLen = 2000

// RatingWriter is the slice of the catalog the review service needs.
type RatingWriter interface {
	SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error
}

// Emitter delivers best-effort notifications.
type Emitter interface {
	Emit(ctx context.Context, input notifications.EmitInput)
}

// DTO is the review projection returned to clients.
type DTO struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	ProductID uuid.UUID          `json:"product_id"`
	Rating    int                `json:"rating"`
	Comment   *string            `json:"comment,omitempty"`
	Status    enums.ReviewStatus `json:"status"`
	Reply     *string            `json:"reply,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// ListDTO wraps a page of reviews plus pagination metadata. Breakdown is a
// per-star count of approved reviews, present on product listings only.
type ListDTO struct {
	Items      []DTO           `json:"items"`
	Breakdown  map[int]int64   `json:"rating_breakdown,omitempty"`
	Pagination pagination.Meta `json:"pagination"`
}

// CreateInput carries the fields accepted when submitting a review.
type CreateInput struct {
	ProductID uuid.UUID
	Rating    int
	Comment   *string
}

// UpdateInput carries the fields a reviewer may change on their own review.
type UpdateInput struct {
	Rating  int
	Comment *string
}

// Service exposes review submission, browsing and moderation.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*DTO, error)
	UpdateOwn(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*DTO, error)
	ListByProduct(ctx context.Context, viewerID, productID uuid.UUID, params pagination.Params) (*ListDTO, error)
	ListForModeration(ctx context.Context, params pagination.Params, status enums.ReviewStatus) (*ListDTO, error)
	Approve(ctx context.Context, reviewID uuid.UUID) (*DTO, error)
	Reject(ctx context.Context, reviewID uuid.UUID, reason string) (*DTO, error)
	Reply(ctx context.Context, reviewID uuid.UUID, reply string) (*DTO, error)
	Delete(ctx context.Context, reviewID uuid.UUID) error
}

// ServiceParams groups dependencies for the review service.
type ServiceParams struct {
	Repo    Repository
	Ratings RatingWriter
	Emitter Emitter
}

type service struct {
	repo    Repository
	ratings RatingWriter
	emitter Emitter
}

// NewService builds a review service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review repo is required")
	}
	if params.Ratings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating writer is required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification emitter is required")
	}
	return &service{repo: params.Repo, ratings: params.Ratings, emitter: params.Emitter}, nil
}

// Create stores an auto-approved review. Only buyers with a completed order
// for the product may review it, and only once; a rejected review frees the
// slot for a resubmission.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*DTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if input.Comment != nil && len(*input.Comment) > maxCommentLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is too long")
	}

	purchased, err := s.repo.HasCompletedPurchase(ctx, userID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase history")
	}
	if !purchased {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only completed purchases can be reviewed")
	}

	exists, err := s.repo.HasNonRejected(ctx, userID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
	}

	review := &models.Review{
		UserID:    userID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		Status:    enums.ReviewStatusApproved,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}

	if err := s.refreshRating(ctx, input.ProductID); err != nil {
		return nil, err
	}

	dto := toDTO(*review)
	return &dto, nil
}

// UpdateOwn lets the author revise their review. The revised review goes back
// through the auto-approval path, so a rejected review can be resubmitted.
func (s *service) UpdateOwn(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*DTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if input.Comment != nil && len(*input.Comment) > maxCommentLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is too long")
	}

	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}

	updates := map[string]any{
		"rating":  input.Rating,
		"comment": input.Comment,
		"status":  enums.ReviewStatusApproved,
	}
	if err := s.repo.UpdateFields(ctx, reviewID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	review.Rating = input.Rating
	review.Comment = input.Comment
	review.Status = enums.ReviewStatusApproved

	if err := s.refreshRating(ctx, review.ProductID); err != nil {
		return nil, err
	}

	dto := toDTO(*review)
	return &dto, nil
}

func (s *service) ListByProduct(ctx context.Context, viewerID, productID uuid.UUID, params pagination.Params) (*ListDTO, error) {
	reviews, total, err := s.repo.ListByProduct(ctx, productID, viewerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	breakdown, err := s.repo.RatingBreakdown(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
	}
	result := toListDTO(reviews, params, total)
	result.Breakdown = breakdown
	return result, nil
}

func (s *service) ListForModeration(ctx context.Context, params pagination.Params, status enums.ReviewStatus) (*ListDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review status")
	}
	reviews, total, err := s.repo.ListByStatus(ctx, params, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return toListDTO(reviews, params, total), nil
}

// Approve restores a rejected review to the public listing.
func (s *service) Approve(ctx context.Context, reviewID uuid.UUID) (*DTO, error) {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status == enums.ReviewStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "review already approved")
	}

	if err := s.repo.UpdateFields(ctx, reviewID, map[string]any{"status": enums.ReviewStatusApproved}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve review")
	}
	review.Status = enums.ReviewStatusApproved

	if err := s.refreshRating(ctx, review.ProductID); err != nil {
		return nil, err
	}

	dto := toDTO(*review)
	return &dto, nil
}

// Reject pulls an approved review out of the public listing and tells the
// author why.
func (s *service) Reject(ctx context.Context, reviewID uuid.UUID, reason string) (*DTO, error) {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status == enums.ReviewStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "review already rejected")
	}

	if err := s.repo.UpdateFields(ctx, reviewID, map[string]any{"status": enums.ReviewStatusRejected}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject review")
	}
	review.Status = enums.ReviewStatusRejected

	if err := s.refreshRating(ctx, review.ProductID); err != nil {
		return nil, err
	}

	message := "Your review was removed by our staff"
	if strings.TrimSpace(reason) != "" {
		message = fmt.Sprintf("Your review was removed: %s", reason)
	}
	s.emitter.Emit(ctx, notifications.EmitInput{
		UserID:  review.UserID,
		Type:    enums.NotificationTypeReviewRejected,
		Title:   "Review removed",
		Message: message,
		Data:    types.JSONMap{"review_id": review.ID.String(), "product_id": review.ProductID.String()},
	})

	dto := toDTO(*review)
	return &dto, nil
}

func (s *service) Reply(ctx context.Context, reviewID uuid.UUID, reply string) (*DTO, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reply cannot be empty")
	}

	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, reviewID, map[string]any{"reply": reply}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reply to review")
	}
	review.Reply = &reply

	dto := toDTO(*review)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, reviewID uuid.UUID) error {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return s.refreshRating(ctx, review.ProductID)
}

func (s *service) loadReview(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	return review, nil
}

func (s *service) refreshRating(ctx context.Context, productID uuid.UUID) error {
	avg, count, err := s.repo.RatingStats(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
	}
	if err := s.ratings.SetRating(ctx, productID, avg, count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store product rating")
	}
	return nil
}

func toDTO(r models.Review) DTO {
	return DTO{
		ID:        r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Status:    r.Status,
		Reply:     r.Reply,
		CreatedAt: r.CreatedAt,
	}
}

func toListDTO(reviews []models.Review, params pagination.Params, total int64) *ListDTO {
	items := make([]DTO, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, toDTO(review))
	}
	return &ListDTO{Items: items, Pagination: pagination.NewMeta(params, total)}
}
