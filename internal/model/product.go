package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/pricing"
)

type ProductStatus string

const (
	ProductActive     ProductStatus = "ACTIVE"
	ProductInactive   ProductStatus = "INACTIVE"
	ProductOutOfStock ProductStatus = "OUT_OF_STOCK"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductOutOfStock:
		return true
	}
	return false
}

// Products with stock below LowStockThreshold count as low stock.
const LowStockThreshold = 10

// DeriveStatus returns the status a product with the given stock must have. Zero stock is
// always OUT_OF_STOCK; restocked products leave OUT_OF_STOCK for ACTIVE.
func DeriveStatus(requested ProductStatus, stock int) ProductStatus {
	if stock == 0 {
		return ProductOutOfStock
	}
	if requested == ProductOutOfStock || requested == "" {
		return ProductActive
	}
	return requested
}

type Category struct {
	ID            uuid.UUID
	Name          string
	Slug          string
	Description   string
	IsActive      bool
	SubCategories []SubCategory
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SubCategory struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Slug        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID                 uuid.UUID
	Name               string
	Slug               string
	Description        string
	CategoryID         uuid.UUID
	SubCategoryID      uuid.NullUUID
	Price              decimal.Decimal
	DiscountPercentage decimal.Decimal
	Stock              int
	SKU                *string
	Brand              string
	Status             ProductStatus
	Images             []ProductImage
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DiscountedPrice is the price a customer pays per unit. Stored products always satisfy
// the price and discount range checks; out-of-range values fall back to the list price.
func (p *Product) DiscountedPrice() decimal.Decimal {
	price, err := pricing.DiscountedPrice(p.Price, p.DiscountPercentage)
	if err != nil {
		return p.Price
	}
	return price
}

func (p *Product) InStock() bool { return p.Stock > 0 }

// Purchasable reports whether customers may put the product in a cart or order it.
func (p *Product) Purchasable() bool { return p.Status != ProductInactive }

func (p *Product) LowStock() bool { return p.Stock < LowStockThreshold }

type ProductImage struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	URL          string
	AltText      string
	IsPrimary    bool
	DisplayOrder int
	CreatedAt    time.Time
}
