package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/repository"
)

// ReviewInput is the customer-editable part of a review.
type ReviewInput struct {
	Rating  int
	Title   string
	Comment string
}

func (in *ReviewInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Comment = strings.TrimSpace(in.Comment)
	switch {
	case !model.ValidRating(in.Rating):
		return apperror.ErrValidation.WithMessage(fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	case utf8.RuneCountInString(in.Title) > model.MaxReviewTitle:
		return apperror.ErrValidation.WithMessage(fmt.Sprintf("title must be at most %d characters", model.MaxReviewTitle))
	case in.Comment == "":
		return apperror.ErrValidation.WithMessage("comment is required")
	}
	return nil
}

type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, productRepo: productRepo}
}

// Add records userID's review of productID. A user reviews a product at most once.
func (s *ReviewService) Add(ctx context.Context, userID, productID uuid.UUID, in ReviewInput) (*model.Review, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, apperror.ErrProductNotFound
	}

	rv := &model.Review{ProductID: productID, UserID: userID, Rating: in.Rating, Title: in.Title, Comment: in.Comment}
	if err := s.reviewRepo.Create(ctx, rv); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrAlreadyReviewed
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrProductNotFound
		case errors.Is(err, repository.ErrInvalid):
			return nil, apperror.ErrValidation.WithMessage("review is invalid")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return rv, nil
}

// Update lets the author rewrite their review. Other users see ErrReviewNotFound.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID uuid.UUID, in ReviewInput) (*model.Review, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	rv := &model.Review{ID: reviewID, UserID: userID, Rating: in.Rating, Title: in.Title, Comment: in.Comment}
	if err := s.reviewRepo.Update(ctx, rv); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrReviewNotFound
		case errors.Is(err, repository.ErrInvalid):
			return nil, apperror.ErrValidation.WithMessage("review is invalid")
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return s.get(ctx, reviewID)
}

// Delete removes a review. Admins may delete any review, customers only their own.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID uuid.UUID, isAdmin bool) error {
	rv, err := s.get(ctx, reviewID)
	if err != nil {
		return err
	}
	if !isAdmin && rv.UserID != userID {
		return apperror.ErrReviewNotFound
	}
	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (s *ReviewService) get(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	rv, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if rv == nil {
		return nil, apperror.ErrReviewNotFound
	}
	return rv, nil
}

// List returns reviews matching f, newest first, and the total number of matches.
func (s *ReviewService) List(ctx context.Context, f model.ReviewFilter) ([]model.Review, int, error) {
	if f.Rating != 0 && !model.ValidRating(f.Rating) {
		return nil, 0, apperror.ErrValidation.WithMessage(fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	reviews, total, err := s.reviewRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// Summary returns the review count and average rating of an existing product.
func (s *ReviewService) Summary(ctx context.Context, productID uuid.UUID) (model.RatingSummary, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return model.RatingSummary{}, apperror.ErrProductNotFound
	}
	summary, err := s.reviewRepo.Summary(ctx, productID)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("review summary: %w", err)
	}
	return summary, nil
}
