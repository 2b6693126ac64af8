package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatusAcceptsTransactionID(t *testing.T) {
	assert.True(t, PaymentStatusPending.AcceptsTransactionID())
	assert.True(t, PaymentStatusFailed.AcceptsTransactionID())
	assert.False(t, PaymentStatusPaid.AcceptsTransactionID())
	assert.False(t, PaymentStatusVerificationPending.AcceptsTransactionID())
}

func TestParseReviewActionNormalizes(t *testing.T) {
	action, err := ParseReviewAction(" Approve ")
	require.NoError(t, err)
	assert.Equal(t, ReviewActionApprove, action)

	_, err = ParseReviewAction("refund")
	require.Error(t, err)
}

func TestParseDeliverySlot(t *testing.T) {
	slot, err := ParseDeliverySlot("midnight")
	require.NoError(t, err)
	assert.Equal(t, DeliverySlotMidnight, slot)

	_, err = ParseDeliverySlot("Midnight")
	require.Error(t, err)
}

func TestParseUserRoleIsCaseInsensitive(t *testing.T) {
	role, err := ParseUserRole("admin")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, role)

	_, err = ParseUserRole("owner")
	require.Error(t, err)
}
