package actionlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyWithExpiry(t *testing.T) {
	signer, err := NewSigner("s3cret", time.Hour, "https://shop.example/")
	require.NoError(t, err)

	orderID := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	link, err := signer.Sign(orderID, enums.ReviewActionApprove, now)
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *link.ExpiresAt)

	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/orders/"+orderID.String()+"/email-action/approve", parsed.Path)
	assert.Equal(t, "shop.example", parsed.Host)
	exp := parsed.Query().Get("exp")
	require.NotEmpty(t, exp)
	assert.Equal(t, link.Token, parsed.Query().Get("token"))

	require.NoError(t, signer.Verify(orderID, enums.ReviewActionApprove, link.Token, exp, now.Add(30*time.Minute)))
	assert.ErrorIs(t, signer.Verify(orderID, enums.ReviewActionApprove, link.Token, exp, now.Add(2*time.Hour)), ErrExpiredToken)
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer, err := NewSigner("s3cret", time.Hour, "https://shop.example")
	require.NoError(t, err)

	orderID := uuid.New()
	now := time.Now()
	link, err := signer.Sign(orderID, enums.ReviewActionApprove, now)
	require.NoError(t, err)
	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	exp := parsed.Query()

	cases := map[string]func() error{
		"other action": func() error {
			return signer.Verify(orderID, enums.ReviewActionReject, link.Token, exp.Get("exp"), now)
		},
		"other order": func() error {
			return signer.Verify(uuid.New(), enums.ReviewActionApprove, link.Token, exp.Get("exp"), now)
		},
		"extended expiry": func() error {
			return signer.Verify(orderID, enums.ReviewActionApprove, link.Token, "99999999999", now)
		},
		"missing expiry": func() error {
			return signer.Verify(orderID, enums.ReviewActionApprove, link.Token, "", now)
		},
		"empty token": func() error {
			return signer.Verify(orderID, enums.ReviewActionApprove, "", exp.Get("exp"), now)
		},
	}
	for name, verify := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, verify(), ErrInvalidToken)
		})
	}
}

func TestNonExpiringTokenMatchesPlainHMAC(t *testing.T) {
	signer, err := NewSigner("s3cret", 0, "https://shop.example")
	require.NoError(t, err)

	orderID := uuid.New()
	link, err := signer.Sign(orderID, enums.ReviewActionReject, time.Now())
	require.NoError(t, err)
	assert.Nil(t, link.ExpiresAt)
	assert.NotContains(t, link.URL, "exp=")

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(orderID.String() + ":reject"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), link.Token)

	far := time.Now().Add(10 * 365 * 24 * time.Hour)
	require.NoError(t, signer.Verify(orderID, enums.ReviewActionReject, strings.ToUpper(link.Token), "", far))
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner("", time.Hour, "https://x")
	assert.Error(t, err)
	_, err = NewSigner("s", -time.Second, "https://x")
	assert.Error(t, err)
	_, err = NewSigner("s", time.Hour, " ")
	assert.Error(t, err)
}
