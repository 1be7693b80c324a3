package enums

import "fmt"

// OrderStatus tracks an order through settlement.
type OrderStatus string

const (
	OrderStatusCart                  OrderStatus = "cart"
	OrderStatusAwaitingAuthorization OrderStatus = "awaiting_authorization"
	OrderStatusAuthorized            OrderStatus = "authorized"
	OrderStatusCommitting            OrderStatus = "committing"
	OrderStatusSettled               OrderStatus = "settled"
	OrderStatusFailed                OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCart,
	OrderStatusAwaitingAuthorization,
	OrderStatusAuthorized,
	OrderStatusCommitting,
	OrderStatusSettled,
	OrderStatusFailed,
}

// orderStatusTransitions encodes the legal settlement progression.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCart:                  {OrderStatusAwaitingAuthorization, OrderStatusCommitting, OrderStatusFailed},
	OrderStatusAwaitingAuthorization: {OrderStatusAuthorized, OrderStatusFailed},
	OrderStatusAuthorized:            {OrderStatusCommitting, OrderStatusFailed},
	OrderStatusCommitting:            {OrderStatusSettled, OrderStatusFailed},
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

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusSettled || o == OrderStatusFailed
}

// CanTransitionTo reports whether moving to next is a legal progression.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[o] {
		if candidate == next {
			return true
		}
	}
	return false
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
