package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/repository"
)

// SeedCategory is one top-level category with the subcategory names to create under it.
type SeedCategory struct {
	Name          string
	SubCategories []string
}

// DefaultCatalog is the storefront's starting category tree.
var DefaultCatalog = []SeedCategory{
	{Name: "Electronics", SubCategories: []string{"Mobiles", "Laptops", "Accessories"}},
	{Name: "Fashion", SubCategories: []string{"Men", "Women", "Kids", "Footwear"}},
	{Name: "Home & Kitchen", SubCategories: []string{"Furniture", "Appliances", "Decor"}},
	{Name: "Beauty & Personal Care"},
	{Name: "Grocery"},
	{Name: "Sports & Fitness"},
	{Name: "Toys & Baby"},
	{Name: "Automotive"},
	{Name: "Books & Stationery"},
	{Name: "Tools & Hardware"},
	{Name: "Health & Wellness"},
}

type SeedResult struct {
	CategoriesCreated    int
	SubCategoriesCreated int
}

type CategoryService struct {
	categoryRepo repository.CategoryRepository
	tx           repository.Transactor
	log          *slog.Logger
}

func NewCategoryService(categoryRepo repository.CategoryRepository, tx repository.Transactor, log *slog.Logger) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, tx: tx, log: log}
}

func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx, !includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*model.Category, error) {
	c := &model.Category{Name: name, Slug: model.Slugify(name), Description: description, IsActive: true}
	if c.Slug == "" {
		return nil, apperror.ErrValidation.WithMessage("category name must contain letters or digits")
	}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrDuplicate.WithMessage("category already exists")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) CreateSubCategory(ctx context.Context, categoryID uuid.UUID, name, description string) (*model.SubCategory, error) {
	sc := &model.SubCategory{
		CategoryID: categoryID, Name: name, Slug: model.Slugify(name), Description: description, IsActive: true,
	}
	if err := s.categoryRepo.CreateSubCategory(ctx, sc); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrCategoryNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrDuplicate.WithMessage("subcategory already exists")
		}
		return nil, fmt.Errorf("create subcategory: %w", err)
	}
	return sc, nil
}

// CategoryUpdate carries the fields to change on a category or subcategory. Nil fields
// are left alone; a new name also regenerates the slug.
type CategoryUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (u CategoryUpdate) apply(name, slug, description *string, isActive *bool) error {
	if u.Name != nil {
		n := strings.TrimSpace(*u.Name)
		if model.Slugify(n) == "" {
			return apperror.ErrValidation.WithMessage("name must contain letters or digits")
		}
		*name, *slug = n, model.Slugify(n)
	}
	if u.Description != nil {
		*description = *u.Description
	}
	if u.IsActive != nil {
		*isActive = *u.IsActive
	}
	return nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*model.Category, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return nil, apperror.ErrCategoryNotFound
	}
	if err := upd.apply(&c.Name, &c.Slug, &c.Description, &c.IsActive); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrCategoryNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrDuplicate.WithMessage("category already exists")
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// Delete removes an empty category together with its subcategories.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperror.ErrCategoryNotFound
		case errors.Is(err, repository.ErrReferenced):
			return apperror.ErrCategoryInUse
		}
		return fmt.Errorf("delete category: %w", err)
	}
	s.log.Info("deleted category", "category_id", id)
	return nil
}

func (s *CategoryService) UpdateSubCategory(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*model.SubCategory, error) {
	sc, err := s.categoryRepo.GetSubCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subcategory: %w", err)
	}
	if sc == nil {
		return nil, apperror.ErrSubCategoryNotFound
	}
	if err := upd.apply(&sc.Name, &sc.Slug, &sc.Description, &sc.IsActive); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.UpdateSubCategory(ctx, sc); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrSubCategoryNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrDuplicate.WithMessage("subcategory already exists")
		}
		return nil, fmt.Errorf("update subcategory: %w", err)
	}
	return sc, nil
}

// DeleteSubCategory removes a subcategory. Its products stay in the parent category.
func (s *CategoryService) DeleteSubCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.DeleteSubCategory(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrSubCategoryNotFound
		}
		return fmt.Errorf("delete subcategory: %w", err)
	}
	s.log.Info("deleted subcategory", "subcategory_id", id)
	return nil
}

// Seed creates the missing parts of tree in one transaction. Running it again with the
// same tree creates nothing.
func (s *CategoryService) Seed(ctx context.Context, tree []SeedCategory) (SeedResult, error) {
	var res SeedResult
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		res = SeedResult{}
		for _, sc := range tree {
			c := &model.Category{
				Name:        sc.Name,
				Slug:        model.Slugify(sc.Name),
				Description: sc.Name + " products and items",
				IsActive:    true,
			}
			created, err := s.categoryRepo.EnsureCategory(ctx, tx, c)
			if err != nil {
				return err
			}
			if created {
				res.CategoriesCreated++
				s.log.Info("created category", "name", c.Name)
			}

			for _, name := range sc.SubCategories {
				sub := &model.SubCategory{
					CategoryID:  c.ID,
					Name:        name,
					Slug:        model.Slugify(name),
					Description: name + " in " + sc.Name,
					IsActive:    true,
				}
				created, err := s.categoryRepo.EnsureSubCategory(ctx, tx, sub)
				if err != nil {
					return err
				}
				if created {
					res.SubCategoriesCreated++
					s.log.Info("created subcategory", "category", c.Name, "name", name)
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed categories: %w", err)
	}
	return res, nil
}
