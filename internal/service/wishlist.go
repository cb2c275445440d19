package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/repository"
)

type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	cartRepo     repository.CartRepository
	tx           repository.Transactor
}

func NewWishlistService(wishlistRepo repository.WishlistRepository, cartRepo repository.CartRepository, tx repository.Transactor) *WishlistService {
	return &WishlistService{wishlistRepo: wishlistRepo, cartRepo: cartRepo, tx: tx}
}

func (s *WishlistService) List(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	items, err := s.wishlistRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return items, nil
}

// Add puts productID on the user's wishlist. Adding a product twice keeps one entry.
func (s *WishlistService) Add(ctx context.Context, userID, productID uuid.UUID) (*model.WishlistItem, error) {
	wishlistID, err := s.wishlistRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	item, err := s.wishlistRepo.AddItem(ctx, wishlistID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrProductNotFound
		}
		return nil, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.wishlistRepo.RemoveItem(ctx, nil, userID, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrWishlistNotFound
		}
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	return nil
}

// MoveToCart adds one unit of the wishlisted product to the cart and drops it from the
// wishlist in one transaction.
func (s *WishlistService) MoveToCart(ctx context.Context, userID, itemID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := s.wishlistRepo.GetItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperror.ErrWishlistNotFound
		}
		if err := s.cartRepo.AddItem(ctx, tx, &model.CartItem{CartID: cart.ID, ProductID: item.ProductID, Quantity: 1}); err != nil {
			return err
		}
		return s.wishlistRepo.RemoveItem(ctx, tx, userID, itemID)
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return err
		}
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrWishlistNotFound
		}
		return fmt.Errorf("move wishlist item to cart: %w", err)
	}
	return nil
}
