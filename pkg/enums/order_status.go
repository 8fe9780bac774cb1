package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
// The lifecycle only moves forward: pending -> processing -> shipping ->
// completed, with cancelled reachable from pending and processing.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipping   OrderStatus = "shipping"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipping,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// orderStatusRank orders the forward-only progression. Cancelled is terminal
// and deliberately absent.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipping:   2,
	OrderStatusCompleted:  3,
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	statuses := make([]OrderStatus, len(validOrderStatuses))
	copy(statuses, validOrderStatuses)
	return statuses
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from the status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}

// Cancellable reports whether the owner may still cancel the order.
func (o OrderStatus) Cancellable() bool {
	return o == OrderStatusPending || o == OrderStatusProcessing
}

// CanAdvanceTo reports whether the staff transition o -> next is legal.
// Cancellation is handled separately and is not an advancement.
func (o OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	from, ok := orderStatusRank[o]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
