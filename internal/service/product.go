package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/pricing"
	"github.com/flicky/apnishop-api/internal/repository"
)

const productCacheTTL = 60 * time.Second

func productCacheKey(id uuid.UUID) string { return "product:" + id.String() }

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	tx           repository.Transactor
	redisClient  *redis.Client
	log          *slog.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	tx repository.Transactor,
	redisClient *redis.Client,
	log *slog.Logger,
) *ProductService {
	return &ProductService{
		productRepo: productRepo, categoryRepo: categoryRepo, tx: tx, redisClient: redisClient, log: log,
	}
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	product := &model.Product{
		Name:               req.Name,
		Slug:               model.Slugify(req.Name),
		Description:        req.Description,
		CategoryID:         req.CategoryID,
		Price:              req.Price,
		DiscountPercentage: req.DiscountPercentage,
		Stock:              req.Stock,
		SKU:                req.SKU,
		Brand:              req.Brand,
		Status:             model.DeriveStatus(req.Status, req.Stock),
	}
	if req.SubCategoryID != nil {
		product.SubCategoryID = uuid.NullUUID{UUID: *req.SubCategoryID, Valid: true}
	}
	if err := s.validate(ctx, product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrDuplicate.WithMessage("a product with this slug or sku already exists")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := dto.NewProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, apperror.ErrProductNotFound
	}

	resp := dto.NewProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	f := repository.ProductFilter{
		Limit:  req.Limit,
		Offset: (req.Page - 1) * req.Limit,
		Search: req.Search,
		Status: model.ProductStatus(req.Status),
		Sort:   req.Sort,
		Order:  req.Order,
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, apperror.ErrValidation.WithMessage("category_id must be a uuid")
		}
		f.CategoryID = uuid.NullUUID{UUID: id, Valid: true}
	}

	products, total, err := s.productRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, dto.NewProductResponse(&p))
	}

	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, apperror.ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = *req.Name
		product.Slug = model.Slugify(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.SubCategoryID != nil {
		product.SubCategoryID = uuid.NullUUID{UUID: *req.SubCategoryID, Valid: true}
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.DiscountPercentage != nil {
		product.DiscountPercentage = *req.DiscountPercentage
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.SKU != nil {
		product.SKU = req.SKU
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	requested := product.Status
	if req.Status != nil {
		requested = *req.Status
	}
	product.Status = model.DeriveStatus(requested, product.Stock)

	if err := s.validate(ctx, product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrProductNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrDuplicate.WithMessage("a product with this slug or sku already exists")
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := dto.NewProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperror.ErrProductNotFound
		case errors.Is(err, repository.ErrReferenced):
			return apperror.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

// AdjustStock applies an inventory delta. Stock never goes below zero.
func (s *ProductService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*dto.ProductResponse, error) {
	if delta == 0 {
		return nil, apperror.ErrValidation.WithMessage("delta must not be zero")
	}
	product, err := s.productRepo.AdjustStock(ctx, id, delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrProductNotFound
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, apperror.ErrInsufficientStock.WithMessage("stock cannot go below zero")
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	s.log.Info("stock adjusted", "product_id", id, "delta", delta, "stock", product.Stock)

	s.invalidateCache(ctx, id)
	resp := dto.NewProductResponse(product)
	return &resp, nil
}

// AddImage attaches an image. A new primary image demotes the previous one in the same
// transaction.
func (s *ProductService) AddImage(ctx context.Context, productID uuid.UUID, req dto.AddImageRequest) (*dto.ProductImageResponse, error) {
	img := &model.ProductImage{
		ProductID:    productID,
		URL:          req.URL,
		AltText:      req.AltText,
		IsPrimary:    req.IsPrimary,
		DisplayOrder: req.DisplayOrder,
	}
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if img.IsPrimary {
			if err := s.productRepo.ClearPrimaryImage(ctx, tx, productID); err != nil {
				return err
			}
		}
		return s.productRepo.AddImage(ctx, tx, img)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrProductNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrConflict.WithMessage("primary image changed concurrently, retry the request")
		}
		return nil, fmt.Errorf("add image: %w", err)
	}

	s.invalidateCache(ctx, productID)
	resp := dto.NewProductImageResponse(img)
	return &resp, nil
}

func (s *ProductService) validate(ctx context.Context, p *model.Product) error {
	if p.Slug == "" {
		return apperror.ErrValidation.WithMessage("product name must contain letters or digits")
	}
	if p.Stock < 0 {
		return apperror.ErrValidation.WithMessage("stock must not be negative")
	}
	if _, err := pricing.DiscountedPrice(p.Price, p.DiscountPercentage); err != nil {
		return apperror.ErrValidation.WithMessage(err.Error())
	}

	category, err := s.categoryRepo.GetByID(ctx, p.CategoryID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return apperror.ErrCategoryNotFound
	}
	if p.SubCategoryID.Valid {
		for _, sc := range category.SubCategories {
			if sc.ID == p.SubCategoryID.UUID {
				return nil
			}
		}
		return apperror.ErrValidation.WithMessage("subcategory does not belong to the category")
	}
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, productCacheKey(id))
	}
}
