package order

// Status represents the fulfilment status of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// IsValid checks if the status is a known order status
func (s Status) IsValid() bool {
	_, ok := registry[s]
	return ok
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further fulfilment happens after s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to target follows the
// usual fulfilment flow. The backend is the authority on transitions; the
// client only uses this to warn before submitting an unusual change.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return false
	}
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusRefunded
	case StatusCancelled:
		return target == StatusRefunded
	}
	return false
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsValid checks if the payment status is known
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func (p PaymentStatus) String() string {
	return string(p)
}

// PaymentStatuses returns every payment status in display order.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}
}
