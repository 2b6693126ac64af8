package enums

import "fmt"

// VerificationStatus is the operator audit flag for a payment claim. It keeps
// "customer says paid" apart from "operator confirmed paid".
type VerificationStatus string

const (
	VerificationUnsubmitted    VerificationStatus = "UNSUBMITTED"
	VerificationAwaitingReview VerificationStatus = "AWAITING_REVIEW"
	VerificationApproved       VerificationStatus = "APPROVED"
	VerificationRejected       VerificationStatus = "REJECTED"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationUnsubmitted,
	VerificationAwaitingReview,
	VerificationApproved,
	VerificationRejected,
}

// String implements fmt.Stringer.
func (v VerificationStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VerificationStatus.
func (v VerificationStatus) IsValid() bool {
	for _, candidate := range validVerificationStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVerificationStatus converts raw input into a VerificationStatus.
func ParseVerificationStatus(value string) (VerificationStatus, error) {
	for _, candidate := range validVerificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification status %q", value)
}
