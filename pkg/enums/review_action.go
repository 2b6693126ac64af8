package enums

import (
	"fmt"
	"strings"
)

// ReviewAction is the operator decision on a submitted payment.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

// IsValid reports whether the value is a known ReviewAction.
func (a ReviewAction) IsValid() bool {
	return a == ReviewActionApprove || a == ReviewActionReject
}

// ParseReviewAction converts raw input into a ReviewAction.
func ParseReviewAction(value string) (ReviewAction, error) {
	action := ReviewAction(strings.ToLower(strings.TrimSpace(value)))
	if !action.IsValid() {
		return "", fmt.Errorf("invalid review action %q", value)
	}
	return action, nil
}

// ReviewChannel identifies which surface triggered a transition.
type ReviewChannel string

const (
	ReviewChannelCustomer ReviewChannel = "customer"
	ReviewChannelAdmin    ReviewChannel = "admin"
	ReviewChannelEmail    ReviewChannel = "email"
)
