package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
	// MaxReviewTitle is the longest title a review may carry, in characters.
	MaxReviewTitle = 200
)

type Review struct {
	ID                 uuid.UUID
	ProductID          uuid.UUID
	UserID             uuid.UUID
	Rating             int
	Title              string
	Comment            string
	IsVerifiedPurchase bool
	// UserName is the reviewer's display name, filled in on reads.
	UserName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }

// ReviewFilter narrows a review listing. Zero values match everything.
type ReviewFilter struct {
	ProductID uuid.NullUUID
	Rating    int
	Limit     int
	Offset    int
}

// RatingSummary aggregates the reviews of one product.
type RatingSummary struct {
	Count   int
	Average float64
}
