package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle stage of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

var nextStatus = map[Status]Status{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusDelivered,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to
// another. Orders advance one step at a time and may be cancelled until
// they reach a terminal status.
func CanTransition(from, to Status) bool {
	if from.Terminal() || !to.Valid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return nextStatus[from] == to
}

// Customer holds the contact details of whoever placed the order.
type Customer struct {
	Name    string
	Phone   string
	Address string
	Notes   string
}

// Item is one order line.
type Item struct {
	ProductID       string
	Quantity        int
	UnitPrice       decimal.Decimal
	SelectedOptions map[string]string
	LineTotal       decimal.Decimal
}

// Order is a submitted customer order.
type Order struct {
	ID          string
	Customer    Customer
	Items       []Item
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter narrows an order listing. Zero values mean no constraint.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	// Get returns ErrNotFound when the order does not exist.
	Get(ctx context.Context, id string) (*Order, error)
	// UpdateStatus returns ErrNotFound when the order does not exist.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}
