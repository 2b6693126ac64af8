// Package actionlink signs and verifies the one-click approve/reject links
// e-mailed to the operator. A link authenticates itself with an HMAC over the
// order id and the action, so no login session is involved.
package actionlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid action token")
	ErrExpiredToken = errors.New("action token expired")
)

// Signer issues and checks action tokens. With a positive ttl the expiry is
// bound into the MAC input as "<orderId>:<action>:<exp>"; with ttl zero the
// input is "<orderId>:<action>" and links never expire.
type Signer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
}

// Link is a signed action ready to be rendered into an e-mail.
type Link struct {
	Action    enums.ReviewAction
	Token     string
	ExpiresAt *time.Time
	URL       string
}

func NewSigner(secret string, ttl time.Duration, publicBaseURL string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("action secret is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("action token ttl must not be negative")
	}
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("public base url is required")
	}
	return &Signer{secret: []byte(secret), ttl: ttl, baseURL: base}, nil
}

// Sign builds the token and URL for one action on one order.
func (s *Signer) Sign(orderID uuid.UUID, action enums.ReviewAction, now time.Time) (Link, error) {
	if !action.IsValid() {
		return Link{}, fmt.Errorf("invalid review action %q", action)
	}

	link := Link{Action: action}
	query := url.Values{}
	exp := ""
	if s.ttl > 0 {
		expiresAt := now.Add(s.ttl).UTC().Truncate(time.Second)
		link.ExpiresAt = &expiresAt
		exp = strconv.FormatInt(expiresAt.Unix(), 10)
		query.Set("exp", exp)
	}
	link.Token = s.mac(orderID, action, exp)
	query.Set("token", link.Token)

	link.URL = fmt.Sprintf("%s/api/v1/orders/%s/email-action/%s?%s", s.baseURL, orderID, action, query.Encode())
	return link, nil
}

// Verify checks token (and exp when present) for the given order and action.
// The comparison is constant time.
func (s *Signer) Verify(orderID uuid.UUID, action enums.ReviewAction, token, exp string, now time.Time) error {
	token = strings.TrimSpace(token)
	exp = strings.TrimSpace(exp)
	if token == "" || !action.IsValid() {
		return ErrInvalidToken
	}
	if exp == "" && s.ttl > 0 {
		return ErrInvalidToken
	}

	expected := s.mac(orderID, action, exp)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(token))) {
		return ErrInvalidToken
	}

	if exp != "" {
		unix, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return ErrInvalidToken
		}
		if now.After(time.Unix(unix, 0)) {
			return ErrExpiredToken
		}
	}
	return nil
}

func (s *Signer) mac(orderID uuid.UUID, action enums.ReviewAction, exp string) string {
	input := orderID.String() + ":" + string(action)
	if exp != "" {
		input += ":" + exp
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}
