package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/repository"
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart returns the user's cart with current product data. Totals are computed from the
// live prices every time.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	withItems, err := s.cartRepo.GetCartWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return withItems, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, apperror.ErrValidation.WithMessage("quantity must be at least 1")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, apperror.ErrProductNotFound
	}
	if !product.Purchasable() {
		return nil, apperror.ErrProductInactive
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	err = s.cartRepo.AddItem(ctx, nil, &model.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrProductNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of a line. A quantity of zero is rejected rather than
// treated as removal.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, apperror.ErrValidation.WithMessage("quantity must be at least 1")
	}
	if err := s.cartRepo.UpdateItemQuantity(ctx, userID, itemID, quantity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.cartRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrCartItemNotFound
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}
	if err := s.cartRepo.ClearCart(ctx, nil, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
