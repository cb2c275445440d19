package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/model"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone" binding:"omitempty,min=10,max=15"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone, Role: u.Role,
	}
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"phone" binding:"omitempty,min=10,max=15"`
}

type ListUsersRequest struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

type AdminUserResponse struct {
	UserResponse
	CreatedAt time.Time `json:"created_at"`
}

type UserListResponse struct {
	Users []AdminUserResponse `json:"users"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func NewUserListResponse(users []model.User, total, page, limit int) UserListResponse {
	resp := UserListResponse{Users: make([]AdminUserResponse, 0, len(users)), Total: total, Page: page, Limit: limit}
	for _, u := range users {
		resp.Users = append(resp.Users, AdminUserResponse{UserResponse: NewUserResponse(&u), CreatedAt: u.CreatedAt})
	}
	return resp
}

// --- Catalog ---

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type CreateSubCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// UpdateCategoryRequest serves both categories and subcategories.
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type SubCategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
}

type CategoryResponse struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Slug          string                `json:"slug"`
	Description   string                `json:"description"`
	IsActive      bool                  `json:"is_active"`
	SubCategories []SubCategoryResponse `json:"subcategories"`
}

func NewCategoryResponse(c *model.Category) CategoryResponse {
	subs := make([]SubCategoryResponse, 0, len(c.SubCategories))
	for _, sc := range c.SubCategories {
		subs = append(subs, NewSubCategoryResponse(&sc))
	}
	return CategoryResponse{
		ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description, IsActive: c.IsActive, SubCategories: subs,
	}
}

func NewSubCategoryResponse(sc *model.SubCategory) SubCategoryResponse {
	return SubCategoryResponse{ID: sc.ID, Name: sc.Name, Slug: sc.Slug, Description: sc.Description, IsActive: sc.IsActive}
}

// --- Product ---

type CreateProductRequest struct {
	Name               string              `json:"name" binding:"required,max=200"`
	Description        string              `json:"description"`
	CategoryID         uuid.UUID           `json:"category_id" binding:"required"`
	SubCategoryID      *uuid.UUID          `json:"subcategory_id"`
	Price              decimal.Decimal     `json:"price" binding:"decimal_gte0"`
	DiscountPercentage decimal.Decimal     `json:"discount_percentage" binding:"decimal_pct"`
	Stock              int                 `json:"stock" binding:"min=0"`
	SKU                *string             `json:"sku" binding:"omitempty,max=100"`
	Brand              string              `json:"brand" binding:"max=100"`
	Status             model.ProductStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE OUT_OF_STOCK"`
}

type UpdateProductRequest struct {
	Name               *string              `json:"name" binding:"omitempty,max=200"`
	Description        *string              `json:"description"`
	CategoryID         *uuid.UUID           `json:"category_id"`
	SubCategoryID      *uuid.UUID           `json:"subcategory_id"`
	Price              *decimal.Decimal     `json:"price" binding:"omitempty,decimal_gte0"`
	DiscountPercentage *decimal.Decimal     `json:"discount_percentage" binding:"omitempty,decimal_pct"`
	Stock              *int                 `json:"stock" binding:"omitempty,min=0"`
	SKU                *string              `json:"sku" binding:"omitempty,max=100"`
	Brand              *string              `json:"brand" binding:"omitempty,max=100"`
	Status             *model.ProductStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE OUT_OF_STOCK"`
}

type ListProductsRequest struct {
	Page       int    `form:"page,default=1" binding:"min=1"`
	Limit      int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search     string `form:"search"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE OUT_OF_STOCK"`
	Sort       string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order      string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type AddImageRequest struct {
	URL          string `json:"url" binding:"required,url"`
	AltText      string `json:"alt_text" binding:"max=200"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder int    `json:"display_order" binding:"min=0"`
}

type ProductImageResponse struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	AltText      string    `json:"alt_text"`
	IsPrimary    bool      `json:"is_primary"`
	DisplayOrder int       `json:"display_order"`
}

func NewProductImageResponse(img *model.ProductImage) ProductImageResponse {
	return ProductImageResponse{
		ID: img.ID, URL: img.URL, AltText: img.AltText, IsPrimary: img.IsPrimary, DisplayOrder: img.DisplayOrder,
	}
}

type ProductResponse struct {
	ID                 uuid.UUID              `json:"id"`
	Name               string                 `json:"name"`
	Slug               string                 `json:"slug"`
	Description        string                 `json:"description"`
	CategoryID         uuid.UUID              `json:"category_id"`
	SubCategoryID      *uuid.UUID             `json:"subcategory_id,omitempty"`
	Price              decimal.Decimal        `json:"price"`
	DiscountPercentage decimal.Decimal        `json:"discount_percentage"`
	DiscountedPrice    decimal.Decimal        `json:"discounted_price"`
	Stock              int                    `json:"stock"`
	InStock            bool                   `json:"in_stock"`
	SKU                *string                `json:"sku,omitempty"`
	Brand              string                 `json:"brand"`
	Status             model.ProductStatus    `json:"status"`
	Images             []ProductImageResponse `json:"images,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func NewProductResponse(p *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		Description:        p.Description,
		CategoryID:         p.CategoryID,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		DiscountedPrice:    p.DiscountedPrice(),
		Stock:              p.Stock,
		InStock:            p.InStock(),
		SKU:                p.SKU,
		Brand:              p.Brand,
		Status:             p.Status,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.SubCategoryID.Valid {
		id := p.SubCategoryID.UUID
		resp.SubCategoryID = &id
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, NewProductImageResponse(&img))
	}
	return resp
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Reviews ---

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"max=200"`
	Comment string `json:"comment" binding:"required"`
}

type ListReviewsRequest struct {
	Page      int    `form:"page,default=1" binding:"min=1"`
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
	ProductID string `form:"product_id" binding:"omitempty,uuid"`
	Rating    int    `form:"rating" binding:"omitempty,min=1,max=5"`
}

type ReviewResponse struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"product_id"`
	UserID             uuid.UUID `json:"user_id"`
	UserName           string    `json:"user_name"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title,omitempty"`
	Comment            string    `json:"comment"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func NewReviewResponse(rv *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:                 rv.ID,
		ProductID:          rv.ProductID,
		UserID:             rv.UserID,
		UserName:           rv.UserName,
		Rating:             rv.Rating,
		Title:              rv.Title,
		Comment:            rv.Comment,
		IsVerifiedPurchase: rv.IsVerifiedPurchase,
		CreatedAt:          rv.CreatedAt,
		UpdatedAt:          rv.UpdatedAt,
	}
}

type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

type RatingSummaryResponse struct {
	ProductID     uuid.UUID `json:"product_id"`
	TotalReviews  int       `json:"total_reviews"`
	AverageRating float64   `json:"average_rating"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type CartResponse struct {
	ID         uuid.UUID          `json:"id"`
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	InStock   bool            `json:"in_stock"`
}

func NewCartResponse(cart *model.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			UnitPrice: item.UnitPrice(),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
			InStock:   item.Product.Stock >= item.Quantity,
		})
	}
	return CartResponse{ID: cart.ID, Items: items, TotalItems: cart.TotalItems(), Subtotal: cart.Subtotal()}
}

// --- Address ---

type AddressRequest struct {
	AddressType  model.AddressType `json:"address_type" binding:"omitempty,oneof=HOME OFFICE OTHER"`
	FullName     string            `json:"full_name" binding:"required,max=100"`
	Phone        string            `json:"phone" binding:"required,min=10,max=15"`
	AddressLine1 string            `json:"address_line1" binding:"required,max=255"`
	AddressLine2 string            `json:"address_line2" binding:"max=255"`
	City         string            `json:"city" binding:"required,max=100"`
	State        string            `json:"state" binding:"required,max=100"`
	Pincode      string            `json:"pincode" binding:"required,numeric,len=6"`
	Country      string            `json:"country" binding:"max=100"`
	IsDefault    bool              `json:"is_default"`
}

func (r AddressRequest) ToModel() *model.Address {
	a := &model.Address{
		AddressType:  r.AddressType,
		FullName:     r.FullName,
		Phone:        r.Phone,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		Pincode:      r.Pincode,
		Country:      r.Country,
		IsDefault:    r.IsDefault,
	}
	if a.AddressType == "" {
		a.AddressType = model.AddressHome
	}
	if a.Country == "" {
		a.Country = model.DefaultCountry
	}
	return a
}

type AddressResponse struct {
	ID           uuid.UUID         `json:"id"`
	AddressType  model.AddressType `json:"address_type"`
	FullName     string            `json:"full_name"`
	Phone        string            `json:"phone"`
	AddressLine1 string            `json:"address_line1"`
	AddressLine2 string            `json:"address_line2,omitempty"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	Pincode      string            `json:"pincode"`
	Country      string            `json:"country"`
	FullAddress  string            `json:"full_address"`
	IsDefault    bool              `json:"is_default"`
}

func NewAddressResponse(a *model.Address) AddressResponse {
	return AddressResponse{
		ID:           a.ID,
		AddressType:  a.AddressType,
		FullName:     a.FullName,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Pincode:      a.Pincode,
		Country:      a.Country,
		FullAddress:  a.FullAddress(),
		IsDefault:    a.IsDefault,
	}
}
