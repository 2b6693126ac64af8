package enums

import "fmt"

// PaymentStatus tracks the customer's payment claim on an order.
type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "PENDING"
	PaymentStatusVerificationPending PaymentStatus = "VERIFICATION_PENDING"
	PaymentStatusPaid                PaymentStatus = "PAID"
	PaymentStatusFailed              PaymentStatus = "FAILED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusVerificationPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// AcceptsTransactionID reports whether a customer may attach a transaction id
// while the order is in this state.
func (p PaymentStatus) AcceptsTransactionID() bool {
	return p == PaymentStatusPending || p == PaymentStatusFailed
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
