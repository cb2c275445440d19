package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/pricing"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusReturned   OrderStatus = "RETURNED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusReturned},
	OrderStatusDelivered:  nil,
	OrderStatusCancelled:  nil,
	OrderStatusReturned:   nil,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering s returns the order's items to inventory.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

type PaymentMethod string

const (
	PaymentCOD        PaymentMethod = "COD"
	PaymentCard       PaymentMethod = "CARD"
	PaymentUPI        PaymentMethod = "UPI"
	PaymentNetBanking PaymentMethod = "NET_BANKING"
	PaymentWallet     PaymentMethod = "WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentUPI, PaymentNetBanking, PaymentWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type Order struct {
	ID                uuid.UUID
	OrderNumber       string
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	CouponID          uuid.NullUUID
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	ShippingCharge    decimal.Decimal
	TaxAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            OrderStatus
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	PaymentID         string
	CustomerNotes     string
	AdminNotes        string
	Items             []OrderItem
	ShippingAddress   *Address
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ConfirmedAt       *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
}

// ApplyTotals copies a pricing snapshot onto the order.
func (o *Order) ApplyTotals(t pricing.Totals) {
	o.Subtotal = t.Subtotal
	o.DiscountAmount = t.DiscountAmount
	o.ShippingCharge = t.ShippingCharge
	o.TaxAmount = t.TaxAmount
	o.TotalAmount = t.TotalAmount
}

// StampStatus sets status and the lifecycle timestamp that belongs to it.
func (o *Order) StampStatus(status OrderStatus, now time.Time) {
	o.Status = status
	o.UpdatedAt = now
	switch status {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &now
	case OrderStatusShipped:
		o.ShippedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	}
}

func (o *Order) TotalItems() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// OrderItem is a frozen copy of the product at order time.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	Total       decimal.Decimal
	CreatedAt   time.Time
}

// NewOrderItem snapshots p for an order line of qty units.
func NewOrderItem(p *Product, qty int) OrderItem {
	price := p.DiscountedPrice()
	return OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       price,
		Quantity:    qty,
		Total:       pricing.RoundMoney(price.Mul(decimal.NewFromInt(int64(qty)))),
	}
}

const (
	EventOrderPlaced    = "order.placed"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
)

// OrderEvent is published after an order changes and consumed by the notification worker.
type OrderEvent struct {
	EventID     uuid.UUID   `json:"event_id"`
	Type        string      `json:"type"`
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uuid.UUID   `json:"user_id"`
	Status      OrderStatus `json:"status"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
