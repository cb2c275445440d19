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

type AddressService struct {
	addressRepo repository.AddressRepository
	tx          repository.Transactor
}

func NewAddressService(addressRepo repository.AddressRepository, tx repository.Transactor) *AddressService {
	return &AddressService{addressRepo: addressRepo, tx: tx}
}

// Create stores a new address for the user. The user's first address always becomes the
// default; asking for a default on a later address moves the default flag to it.
func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, a *model.Address) (*model.Address, error) {
	a.UserID = userID
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		count, err := s.addressRepo.CountByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if count == 0 {
			a.IsDefault = true
		}
		if a.IsDefault && count > 0 {
			if err := s.addressRepo.ClearDefault(ctx, tx, userID); err != nil {
				return err
			}
		}
		return s.addressRepo.Create(ctx, tx, a)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrAddressRace
		}
		return nil, fmt.Errorf("create address: %w", err)
	}
	return a, nil
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

func (s *AddressService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Address, error) {
	a, err := s.addressRepo.GetByID(ctx, nil, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if a == nil {
		return nil, apperror.ErrAddressNotFound
	}
	return a, nil
}

// Update replaces the address fields. The default flag is managed through SetDefault and
// keeps its stored value here.
func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, a *model.Address) (*model.Address, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	a.ID = id
	a.UserID = userID
	a.IsDefault = existing.IsDefault
	if err := s.addressRepo.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrAddressNotFound
		}
		return nil, fmt.Errorf("update address: %w", err)
	}
	return a, nil
}

// Delete removes an address. Addresses used by an order cannot be deleted.
func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.addressRepo.Delete(ctx, userID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperror.ErrAddressNotFound
		case errors.Is(err, repository.ErrReferenced):
			return apperror.ErrAddressInUse
		}
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

// SetDefault makes id the user's only default address.
func (s *AddressService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*model.Address, error) {
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.addressRepo.ClearDefault(ctx, tx, userID); err != nil {
			return err
		}
		return s.addressRepo.SetDefault(ctx, tx, userID, id)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrAddressNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrAddressRace
		}
		return nil, fmt.Errorf("set default address: %w", err)
	}
	return s.Get(ctx, userID, id)
}
