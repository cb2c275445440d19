package service

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/pricing"
	"github.com/flicky/apnishop-api/internal/repository"
)

// memDB is the shared state behind the mock repositories. Rows are stored by value so a
// snapshot is a shallow copy of every map.
type memDB struct {
	mu sync.Mutex

	users         map[uuid.UUID]model.User
	categories    map[uuid.UUID]model.Category
	subcategories map[uuid.UUID]model.SubCategory
	products      map[uuid.UUID]model.Product
	images        map[uuid.UUID]model.ProductImage
	carts         map[uuid.UUID]model.Cart
	cartItems     map[uuid.UUID]model.CartItem
	addresses     map[uuid.UUID]model.Address
	coupons       map[uuid.UUID]model.Coupon
	orders        map[uuid.UUID]model.Order
	orderItems    map[uuid.UUID]model.OrderItem
	wishlists     map[uuid.UUID]uuid.UUID
	wishItems     map[uuid.UUID]model.WishlistItem
	reviews       map[uuid.UUID]model.Review
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[uuid.UUID]model.User{},
		categories:    map[uuid.UUID]model.Category{},
		subcategories: map[uuid.UUID]model.SubCategory{},
		products:      map[uuid.UUID]model.Product{},
		images:        map[uuid.UUID]model.ProductImage{},
		carts:         map[uuid.UUID]model.Cart{},
		cartItems:     map[uuid.UUID]model.CartItem{},
		addresses:     map[uuid.UUID]model.Address{},
		coupons:       map[uuid.UUID]model.Coupon{},
		orders:        map[uuid.UUID]model.Order{},
		orderItems:    map[uuid.UUID]model.OrderItem{},
		wishlists:     map[uuid.UUID]uuid.UUID{},
		wishItems:     map[uuid.UUID]model.WishlistItem{},
		reviews:       map[uuid.UUID]model.Review{},
	}
}

func (db *memDB) snapshot() *memDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	return &memDB{
		users:         maps.Clone(db.users),
		categories:    maps.Clone(db.categories),
		subcategories: maps.Clone(db.subcategories),
		products:      maps.Clone(db.products),
		images:        maps.Clone(db.images),
		carts:         maps.Clone(db.carts),
		cartItems:     maps.Clone(db.cartItems),
		addresses:     maps.Clone(db.addresses),
		coupons:       maps.Clone(db.coupons),
		orders:        maps.Clone(db.orders),
		orderItems:    maps.Clone(db.orderItems),
		wishlists:     maps.Clone(db.wishlists),
		wishItems:     maps.Clone(db.wishItems),
		reviews:       maps.Clone(db.reviews),
	}
}

func (db *memDB) restore(s *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users, db.categories, db.subcategories = s.users, s.categories, s.subcategories
	db.products, db.images = s.products, s.images
	db.carts, db.cartItems = s.carts, s.cartItems
	db.addresses, db.coupons = s.addresses, s.coupons
	db.orders, db.orderItems = s.orders, s.orderItems
	db.wishlists, db.wishItems = s.wishlists, s.wishItems
	db.reviews = s.reviews
}

// adjustStock mirrors the SQL used for every stock mutation.
func (db *memDB) adjustStock(id uuid.UUID, delta int) (model.Product, error) {
	p, ok := db.products[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return model.Product{}, repository.ErrInsufficientStock
	}
	p.Stock += delta
	switch {
	case p.Stock == 0:
		p.Status = model.ProductOutOfStock
	case p.Status == model.ProductOutOfStock:
		p.Status = model.ProductActive
	}
	db.products[id] = p
	return p, nil
}

// --- transactions ---

type fakeTx struct{ pgx.Tx }

// memTransactor serializes transactions and rolls memDB back when fn fails or ctx ends
// before commit. failures are returned, one per call, before fn runs.
type memTransactor struct {
	db       *memDB
	txMu     sync.Mutex
	failures []error
	calls    int
}

func (t *memTransactor) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	t.calls++
	if len(t.failures) > 0 {
		err := t.failures[0]
		t.failures = t.failures[1:]
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := t.db.snapshot()
	if err := fn(fakeTx{}); err != nil {
		t.db.restore(snap)
		return err
	}
	// Commit fails once ctx is done, as it does against the database.
	if err := ctx.Err(); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// --- users ---

type mockUserRepo struct{ db *memDB }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.db.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.FirstName, u.LastName, u.Phone = user.FirstName, user.LastName, user.Phone
	u.UpdatedAt = time.Now()
	user.UpdatedAt = u.UpdatedAt
	m.db.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]model.User, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	all := slicesOf(m.db.users)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), len(all), nil
}

// --- catalog ---

type mockCategoryRepo struct{ db *memDB }

func (m *mockCategoryRepo) withSubs(c model.Category) model.Category {
	c.SubCategories = nil
	for _, sc := range m.db.subcategories {
		if sc.CategoryID == c.ID {
			c.SubCategories = append(c.SubCategories, sc)
		}
	}
	sort.Slice(c.SubCategories, func(i, j int) bool { return c.SubCategories[i].Name < c.SubCategories[j].Name })
	return c
}

func (m *mockCategoryRepo) List(_ context.Context, activeOnly bool) ([]model.Category, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Category
	for _, c := range m.db.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, m.withSubs(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.categories[id]
	if !ok {
		return nil, nil
	}
	c = m.withSubs(c)
	return &c, nil
}

func (m *mockCategoryRepo) Create(_ context.Context, c *model.Category) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.insert(c)
}

func (m *mockCategoryRepo) insert(c *model.Category) error {
	for _, existing := range m.db.categories {
		if existing.Name == c.Name || existing.Slug == c.Slug {
			return repository.ErrDuplicate
		}
	}
	c.ID = uuid.New()
	m.db.categories[c.ID] = *c
	return nil
}

func (m *mockCategoryRepo) CreateSubCategory(_ context.Context, sc *model.SubCategory) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.insertSub(sc)
}

func (m *mockCategoryRepo) insertSub(sc *model.SubCategory) error {
	if _, ok := m.db.categories[sc.CategoryID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range m.db.subcategories {
		if existing.CategoryID == sc.CategoryID && existing.Name == sc.Name {
			return repository.ErrDuplicate
		}
	}
	sc.ID = uuid.New()
	m.db.subcategories[sc.ID] = *sc
	return nil
}

func (m *mockCategoryRepo) Update(_ context.Context, c *model.Category) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.categories[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range m.db.categories {
		if other.ID != c.ID && (other.Name == c.Name || other.Slug == c.Slug) {
			return repository.ErrDuplicate
		}
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	stored := *c
	stored.SubCategories = nil
	m.db.categories[c.ID] = stored
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.categories[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range m.db.products {
		if p.CategoryID == id {
			return repository.ErrReferenced
		}
	}
	for scID, sc := range m.db.subcategories {
		if sc.CategoryID == id {
			delete(m.db.subcategories, scID)
		}
	}
	delete(m.db.categories, id)
	return nil
}

func (m *mockCategoryRepo) GetSubCategory(_ context.Context, id uuid.UUID) (*model.SubCategory, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	sc, ok := m.db.subcategories[id]
	if !ok {
		return nil, nil
	}
	return &sc, nil
}

func (m *mockCategoryRepo) UpdateSubCategory(_ context.Context, sc *model.SubCategory) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.subcategories[sc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range m.db.subcategories {
		if other.ID != sc.ID && other.CategoryID == existing.CategoryID && other.Name == sc.Name {
			return repository.ErrDuplicate
		}
	}
	sc.CategoryID = existing.CategoryID
	sc.UpdatedAt = time.Now()
	m.db.subcategories[sc.ID] = *sc
	return nil
}

func (m *mockCategoryRepo) DeleteSubCategory(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.subcategories[id]; !ok {
		return repository.ErrNotFound
	}
	for pid, p := range m.db.products {
		if p.SubCategoryID.Valid && p.SubCategoryID.UUID == id {
			p.SubCategoryID = uuid.NullUUID{}
			m.db.products[pid] = p
		}
	}
	delete(m.db.subcategories, id)
	return nil
}

func (m *mockCategoryRepo) EnsureCategory(_ context.Context, _ pgx.Tx, c *model.Category) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.categories {
		if existing.Name == c.Name {
			c.ID = existing.ID
			return false, nil
		}
	}
	return true, m.insert(c)
}

func (m *mockCategoryRepo) EnsureSubCategory(_ context.Context, _ pgx.Tx, sc *model.SubCategory) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.subcategories {
		if existing.CategoryID == sc.CategoryID && existing.Name == sc.Name {
			sc.ID = existing.ID
			return false, nil
		}
	}
	return true, m.insertSub(sc)
}

type mockProductRepo struct {
	db *memDB
	// gets counts GetByID calls that reached the store.
	gets int
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.categories[p.CategoryID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range m.db.products {
		if existing.Slug == p.Slug {
			return repository.ErrDuplicate
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.db.products[p.ID] = *p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.gets++
	p, ok := m.db.products[id]
	if !ok {
		return nil, nil
	}
	p.Images = nil
	for _, img := range m.db.images {
		if img.ProductID == id {
			p.Images = append(p.Images, img)
		}
	}
	sort.Slice(p.Images, func(i, j int) bool { return p.Images[i].IsPrimary && !p.Images[j].IsPrimary })
	return &p, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var matched []model.Product
	for _, p := range m.db.products {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.CategoryID.Valid && p.CategoryID != f.CategoryID.UUID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := min(f.Offset+f.Limit, total)
	return matched[f.Offset:end], total, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	stored := *p
	stored.Images = nil
	m.db.products[p.ID] = stored
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, item := range m.db.orderItems {
		if item.ProductID == id {
			return repository.ErrReferenced
		}
	}
	delete(m.db.products, id)
	return nil
}

func (m *mockProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, err := m.db.adjustStock(id, delta)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, _ pgx.Tx, id uuid.UUID, qty int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, err := m.db.adjustStock(id, -qty); err != nil {
		return repository.ErrInsufficientStock
	}
	return nil
}

func (m *mockProductRepo) RestockTx(_ context.Context, _ pgx.Tx, id uuid.UUID, qty int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, err := m.db.adjustStock(id, qty)
	return err
}

func (m *mockProductRepo) ClearPrimaryImage(_ context.Context, _ pgx.Tx, productID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for id, img := range m.db.images {
		if img.ProductID == productID && img.IsPrimary {
			img.IsPrimary = false
			m.db.images[id] = img
		}
	}
	return nil
}

func (m *mockProductRepo) AddImage(_ context.Context, _ pgx.Tx, img *model.ProductImage) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.products[img.ProductID]; !ok {
		return repository.ErrNotFound
	}
	if img.IsPrimary {
		for _, existing := range m.db.images {
			if existing.ProductID == img.ProductID && existing.IsPrimary {
				return repository.ErrDuplicate
			}
		}
	}
	img.ID = uuid.New()
	m.db.images[img.ID] = *img
	return nil
}

// --- cart ---

type mockCartRepo struct{ db *memDB }

func (m *mockCartRepo) GetOrCreateCart(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, c := range m.db.carts {
		if c.UserID == userID {
			return &c, nil
		}
	}
	cart := model.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
	m.db.carts[cart.ID] = cart
	return &cart, nil
}

func (m *mockCartRepo) items(cartID uuid.UUID) []model.CartItem {
	var items []model.CartItem
	for _, item := range m.db.cartItems {
		if item.CartID == cartID {
			item.Product = m.db.products[item.ProductID]
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID.String() < items[j].ProductID.String() })
	return items
}

func (m *mockCartRepo) GetCartWithItems(_ context.Context, cartID uuid.UUID) (*model.Cart, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cart, ok := m.db.carts[cartID]
	if !ok {
		return nil, nil
	}
	cart.Items = m.items(cartID)
	return &cart, nil
}

func (m *mockCartRepo) LockCart(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*model.Cart, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, c := range m.db.carts {
		if c.UserID == userID {
			c.Items = m.items(c.ID)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) AddItem(_ context.Context, _ pgx.Tx, item *model.CartItem) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.products[item.ProductID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.db.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			m.db.cartItems[id] = existing
			item.ID, item.Quantity = existing.ID, existing.Quantity
			return nil
		}
	}
	item.ID = uuid.New()
	m.db.cartItems[item.ID] = *item
	return nil
}

func (m *mockCartRepo) owned(userID, itemID uuid.UUID) (model.CartItem, bool) {
	item, ok := m.db.cartItems[itemID]
	if !ok {
		return item, false
	}
	return item, m.db.carts[item.CartID].UserID == userID
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, userID, itemID uuid.UUID, qty int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	item, ok := m.owned(userID, itemID)
	if !ok {
		return repository.ErrNotFound
	}
	item.Quantity = qty
	m.db.cartItems[itemID] = item
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, userID, itemID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.owned(userID, itemID); !ok {
		return repository.ErrNotFound
	}
	delete(m.db.cartItems, itemID)
	return nil
}

func (m *mockCartRepo) ClearCart(_ context.Context, _ pgx.Tx, cartID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for id, item := range m.db.cartItems {
		if item.CartID == cartID {
			delete(m.db.cartItems, id)
		}
	}
	return nil
}

func (m *mockCartRepo) RemoveOrderedLines(_ context.Context, _ pgx.Tx, cartID uuid.UUID, lines []model.CartItem) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, line := range lines {
		item, ok := m.db.cartItems[line.ID]
		if !ok || item.CartID != cartID {
			continue
		}
		if item.Quantity <= line.Quantity {
			delete(m.db.cartItems, line.ID)
			continue
		}
		item.Quantity -= line.Quantity
		m.db.cartItems[line.ID] = item
	}
	return nil
}

// --- addresses ---

type mockAddressRepo struct{ db *memDB }

func (m *mockAddressRepo) hasDefault(userID uuid.UUID) bool {
	for _, a := range m.db.addresses {
		if a.UserID == userID && a.IsDefault {
			return true
		}
	}
	return false
}

func (m *mockAddressRepo) Create(_ context.Context, _ pgx.Tx, a *model.Address) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if a.IsDefault && m.hasDefault(a.UserID) {
		return repository.ErrDuplicate
	}
	a.ID = uuid.New()
	m.db.addresses[a.ID] = *a
	return nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, _ pgx.Tx, userID, id uuid.UUID) (*model.Address, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.addresses[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return &a, nil
}

func (m *mockAddressRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Address, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Address
	for _, a := range m.db.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (m *mockAddressRepo) CountByUser(_ context.Context, _ pgx.Tx, userID uuid.UUID) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, a := range m.db.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockAddressRepo) Update(_ context.Context, a *model.Address) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.addresses[a.ID]
	if !ok || existing.UserID != a.UserID {
		return repository.ErrNotFound
	}
	m.db.addresses[a.ID] = *a
	return nil
}

func (m *mockAddressRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.addresses[id]
	if !ok || a.UserID != userID {
		return repository.ErrNotFound
	}
	for _, o := range m.db.orders {
		if o.ShippingAddressID == id {
			return repository.ErrReferenced
		}
	}
	delete(m.db.addresses, id)
	return nil
}

func (m *mockAddressRepo) ClearDefault(_ context.Context, _ pgx.Tx, userID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for id, a := range m.db.addresses {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			m.db.addresses[id] = a
		}
	}
	return nil
}

func (m *mockAddressRepo) SetDefault(_ context.Context, _ pgx.Tx, userID, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.addresses[id]
	if !ok || a.UserID != userID {
		return repository.ErrNotFound
	}
	if !a.IsDefault && m.hasDefault(userID) {
		return repository.ErrDuplicate
	}
	a.IsDefault = true
	m.db.addresses[id] = a
	return nil
}

// --- coupons ---

type mockCouponRepo struct{ db *memDB }

func (m *mockCouponRepo) Create(_ context.Context, c *model.Coupon) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c.Code = strings.ToUpper(c.Code)
	for _, existing := range m.db.coupons {
		if existing.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	c.ID = uuid.New()
	m.db.coupons[c.ID] = *c
	return nil
}

func (m *mockCouponRepo) GetByCode(_ context.Context, _ pgx.Tx, code string) (*model.Coupon, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range m.db.coupons {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCouponRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Coupon, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.coupons[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *model.Coupon) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.coupons[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	for _, other := range m.db.coupons {
		if other.ID != c.ID && other.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	if c.UsageLimit != nil && *c.UsageLimit < existing.UsedCount {
		return repository.ErrInvalid
	}
	c.UsedCount = existing.UsedCount
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	m.db.coupons[c.ID] = *c
	return nil
}

func (m *mockCouponRepo) Deactivate(_ context.Context, id uuid.UUID) (*model.Coupon, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.IsActive = false
	m.db.coupons[id] = c
	return &c, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]model.Coupon, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return slicesOf(m.db.coupons), nil
}

func (m *mockCouponRepo) IncrementUsage(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.coupons[id]
	if !ok || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
		return repository.ErrCouponExhausted
	}
	c.UsedCount++
	m.db.coupons[id] = c
	return nil
}

// --- reviews ---

type mockReviewRepo struct{ db *memDB }

func (m *mockReviewRepo) withUser(rv model.Review) model.Review {
	if u, ok := m.db.users[rv.UserID]; ok {
		rv.UserName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return rv
}

func (m *mockReviewRepo) Create(_ context.Context, rv *model.Review) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.products[rv.ProductID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := m.db.users[rv.UserID]; !ok {
		return repository.ErrNotFound
	}
	if !model.ValidRating(rv.Rating) || rv.Comment == "" {
		return repository.ErrInvalid
	}
	for _, existing := range m.db.reviews {
		if existing.ProductID == rv.ProductID && existing.UserID == rv.UserID {
			return repository.ErrDuplicate
		}
	}
	rv.IsVerifiedPurchase = false
	for _, item := range m.db.orderItems {
		o := m.db.orders[item.OrderID]
		if item.ProductID == rv.ProductID && o.UserID == rv.UserID && o.Status == model.OrderStatusDelivered {
			rv.IsVerifiedPurchase = true
		}
	}
	rv.ID = uuid.New()
	rv.CreatedAt = time.Now()
	rv.UpdatedAt = rv.CreatedAt
	m.db.reviews[rv.ID] = *rv
	return nil
}

func (m *mockReviewRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Review, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	rv, ok := m.db.reviews[id]
	if !ok {
		return nil, nil
	}
	rv = m.withUser(rv)
	return &rv, nil
}

func (m *mockReviewRepo) Update(_ context.Context, rv *model.Review) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.reviews[rv.ID]
	if !ok || existing.UserID != rv.UserID {
		return repository.ErrNotFound
	}
	existing.Rating, existing.Title, existing.Comment = rv.Rating, rv.Title, rv.Comment
	existing.UpdatedAt = time.Now()
	m.db.reviews[rv.ID] = existing
	*rv = existing
	return nil
}

func (m *mockReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.reviews, id)
	return nil
}

func (m *mockReviewRepo) List(_ context.Context, f model.ReviewFilter) ([]model.Review, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Review
	for _, rv := range m.db.reviews {
		if f.ProductID.Valid && rv.ProductID != f.ProductID.UUID {
			continue
		}
		if f.Rating != 0 && rv.Rating != f.Rating {
			continue
		}
		out = append(out, m.withUser(rv))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (m *mockReviewRepo) Summary(_ context.Context, productID uuid.UUID) (model.RatingSummary, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var s model.RatingSummary
	sum := 0
	for _, rv := range m.db.reviews {
		if rv.ProductID == productID {
			s.Count++
			sum += rv.Rating
		}
	}
	if s.Count > 0 {
		s.Average = float64(sum) / float64(s.Count)
	}
	return s, nil
}

// --- orders ---

type mockOrderRepo struct {
	db *memDB
	// collisions makes the next Create calls report a taken order number.
	collisions int
}

func (m *mockOrderRepo) Create(_ context.Context, _ pgx.Tx, o *model.Order) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.collisions > 0 {
		m.collisions--
		return repository.ErrDuplicate
	}
	for _, existing := range m.db.orders {
		if existing.OrderNumber == o.OrderNumber {
			return repository.ErrDuplicate
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Items, stored.ShippingAddress = nil, nil
	m.db.orders[o.ID] = stored
	return nil
}

func (m *mockOrderRepo) CreateItems(_ context.Context, _ pgx.Tx, items []model.OrderItem) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for i := range items {
		items[i].ID = uuid.New()
		m.db.orderItems[items[i].ID] = items[i]
	}
	return nil
}

func (m *mockOrderRepo) load(o model.Order) model.Order {
	o.Items = nil
	for _, item := range m.db.orderItems {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	if a, ok := m.db.addresses[o.ShippingAddressID]; ok {
		o.ShippingAddress = &a
	}
	return o
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	o, ok := m.db.orders[id]
	if !ok {
		return nil, nil
	}
	o = m.load(o)
	return &o, nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Order
	for _, o := range m.db.orders {
		if o.UserID == userID {
			out = append(out, m.load(o))
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Order
	for _, o := range m.db.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ pgx.Tx, o *model.Order, from model.OrderStatus) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	stored, ok := m.db.orders[o.ID]
	if !ok || stored.Status != from {
		return repository.ErrStaleStatus
	}
	stored.StampStatus(o.Status, time.Now())
	if o.AdminNotes != "" {
		stored.AdminNotes = o.AdminNotes
	}
	m.db.orders[o.ID] = stored
	o.AdminNotes, o.UpdatedAt = stored.AdminNotes, stored.UpdatedAt
	o.ConfirmedAt, o.ShippedAt, o.DeliveredAt = stored.ConfirmedAt, stored.ShippedAt, stored.DeliveredAt
	return nil
}

func (m *mockOrderRepo) UpdatePayment(_ context.Context, id uuid.UUID, status model.PaymentStatus, paymentID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	o, ok := m.db.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.PaymentStatus = status
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	m.db.orders[id] = o
	return nil
}

// --- wishlist ---

type mockWishlistRepo struct{ db *memDB }

func (m *mockWishlistRepo) GetOrCreate(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if id, ok := m.db.wishlists[userID]; ok {
		return id, nil
	}
	id := uuid.New()
	m.db.wishlists[userID] = id
	return id, nil
}

func (m *mockWishlistRepo) AddItem(_ context.Context, wishlistID, productID uuid.UUID) (*model.WishlistItem, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.products[productID]; !ok {
		return nil, repository.ErrNotFound
	}
	for _, item := range m.db.wishItems {
		if item.WishlistID == wishlistID && item.ProductID == productID {
			return &item, nil
		}
	}
	item := model.WishlistItem{ID: uuid.New(), WishlistID: wishlistID, ProductID: productID, AddedAt: time.Now()}
	m.db.wishItems[item.ID] = item
	return &item, nil
}

func (m *mockWishlistRepo) ListItems(_ context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	wid := m.db.wishlists[userID]
	var out []model.WishlistItem
	for _, item := range m.db.wishItems {
		if item.WishlistID == wid {
			item.Product = m.db.products[item.ProductID]
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockWishlistRepo) owned(userID, itemID uuid.UUID) (model.WishlistItem, bool) {
	item, ok := m.db.wishItems[itemID]
	wid, has := m.db.wishlists[userID]
	return item, ok && has && item.WishlistID == wid
}

func (m *mockWishlistRepo) GetItem(_ context.Context, _ pgx.Tx, userID, itemID uuid.UUID) (*model.WishlistItem, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	item, ok := m.owned(userID, itemID)
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockWishlistRepo) RemoveItem(_ context.Context, _ pgx.Tx, userID, itemID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.owned(userID, itemID); !ok {
		return repository.ErrNotFound
	}
	delete(m.db.wishItems, itemID)
	return nil
}

// --- stats ---

type mockStatsRepo struct {
	db    *memDB
	calls int
}

func (m *mockStatsRepo) Dashboard(_ context.Context, lowStockBelow int) (*model.Stats, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.calls++
	s := &model.Stats{
		TotalUsers:    int64(len(m.db.users)),
		TotalProducts: int64(len(m.db.products)),
		TotalOrders:   int64(len(m.db.orders)),
		TotalRevenue:  decimal.Zero,
	}
	for _, o := range m.db.orders {
		if o.Status != model.OrderStatusCancelled && o.Status != model.OrderStatusReturned {
			s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
		}
		s.RecentOrders7d++
	}
	for _, p := range m.db.products {
		if p.Stock < lowStockBelow {
			s.LowStockProducts++
		}
	}
	return s, nil
}

// --- events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func slicesOf[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// page mirrors LIMIT/OFFSET.
func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// --- fixtures ---

type testEnv struct {
	db        *memDB
	tx        *memTransactor
	users     *mockUserRepo
	cats      *mockCategoryRepo
	products  *mockProductRepo
	carts     *mockCartRepo
	addresses *mockAddressRepo
	coupons   *mockCouponRepo
	orders    *mockOrderRepo
	wishlists *mockWishlistRepo
	stats     *mockStatsRepo
	reviews   *mockReviewRepo
	publisher *recordingPublisher
	log       *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newMemDB()
	return &testEnv{
		db:        db,
		tx:        &memTransactor{db: db},
		users:     &mockUserRepo{db: db},
		cats:      &mockCategoryRepo{db: db},
		products:  &mockProductRepo{db: db},
		carts:     &mockCartRepo{db: db},
		addresses: &mockAddressRepo{db: db},
		coupons:   &mockCouponRepo{db: db},
		orders:    &mockOrderRepo{db: db},
		wishlists: &mockWishlistRepo{db: db},
		stats:     &mockStatsRepo{db: db},
		reviews:   &mockReviewRepo{db: db},
		publisher: &recordingPublisher{},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (e *testEnv) orderService() *OrderService {
	return NewOrderService(OrderRepos{
		Orders:   e.orders,
		Carts:    e.carts,
		Products: e.products,
		Address:  e.addresses,
		Coupons:  e.coupons,
	}, e.tx, e.publisher, OrderOptions{Policy: pricing.DefaultPolicy(), MaxAttempts: 2, Timeout: 5 * time.Second}, e.log)
}

func (e *testEnv) cartService() *CartService { return NewCartService(e.carts, e.products) }

func (e *testEnv) addressService() *AddressService { return NewAddressService(e.addresses, e.tx) }

func (e *testEnv) seedCategory(t *testing.T, name string) uuid.UUID {
	t.Helper()
	c := &model.Category{Name: name, Slug: model.Slugify(name), IsActive: true}
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	c.ID = uuid.New()
	e.db.categories[c.ID] = *c
	return c.ID
}

func (e *testEnv) seedProduct(t *testing.T, name, price, discount string, stock int) uuid.UUID {
	t.Helper()
	p := model.Product{
		ID:                 uuid.New(),
		Name:               name,
		Slug:               model.Slugify(name),
		CategoryID:         e.seedCategory(t, name+" category"),
		Price:              decimal.RequireFromString(price),
		DiscountPercentage: decimal.RequireFromString(discount),
		Stock:              stock,
		Status:             model.DeriveStatus(model.ProductActive, stock),
	}
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.products[p.ID] = p
	return p.ID
}

func (e *testEnv) seedUser(t *testing.T, first, last string) uuid.UUID {
	t.Helper()
	u := &model.User{Email: strings.ToLower(first) + "@example.com", FirstName: first, LastName: last, Role: model.RoleCustomer}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.ID
}

func (e *testEnv) seedAddress(t *testing.T, userID uuid.UUID) uuid.UUID {
	t.Helper()
	a := model.Address{
		ID: uuid.New(), UserID: userID, AddressType: model.AddressHome, FullName: "Asha Rao",
		Phone: "9876543210", AddressLine1: "12 MG Road", City: "Pune", State: "MH",
		Pincode: "411001", Country: model.DefaultCountry, IsDefault: true,
	}
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.addresses[a.ID] = a
	return a.ID
}

func (e *testEnv) seedCoupon(t *testing.T, c model.Coupon) model.Coupon {
	t.Helper()
	c.ID = uuid.New()
	c.Code = strings.ToUpper(c.Code)
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.coupons[c.ID] = c
	return c
}

func (e *testEnv) setProductStatus(productID uuid.UUID, status model.ProductStatus) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	p := e.db.products[productID]
	p.Status = status
	e.db.products[productID] = p
}

func (e *testEnv) cartQuantities(userID uuid.UUID) map[uuid.UUID]int {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	out := map[uuid.UUID]int{}
	for _, item := range e.db.cartItems {
		if e.db.carts[item.CartID].UserID == userID {
			out[item.ProductID] = item.Quantity
		}
	}
	return out
}

func (e *testEnv) stock(productID uuid.UUID) (int, model.ProductStatus) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	p := e.db.products[productID]
	return p.Stock, p.Status
}

func (e *testEnv) orderCount() int {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	return len(e.db.orders)
}
