package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakehouse-backend/pkg/auth/actionlink"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox/payloads"
)

type linkSigner interface {
	Sign(orderID uuid.UUID, action enums.ReviewAction, now time.Time) (actionlink.Link, error)
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Georgia, serif; background: #fdf6ec; color: #4a2c17; padding: 24px;">
  <h2>Payment verification needed</h2>
  <p>Order <strong>#{{.OrderNumber}}</strong> was marked as paid by the customer.</p>
  <table cellpadding="6">
    <tr><td>Transaction ID</td><td><code>{{.TransactionID}}</code></td></tr>
    <tr><td>Amount</td><td>&#8377;{{.Amount}}</td></tr>
    <tr><td>Payment status</td><td>{{.PaymentStatus}}</td></tr>
    <tr><td>Submitted at</td><td>{{.SubmittedAt}}</td></tr>
  </table>
  <p>Check the UPI statement, then choose:</p>
  <p>
    <a href="{{.ApproveURL}}" style="background: #2e7d32; color: #fff; padding: 10px 18px; text-decoration: none;">Approve payment</a>
    &nbsp;
    <a href="{{.RejectURL}}" style="background: #c62828; color: #fff; padding: 10px 18px; text-decoration: none;">Reject payment</a>
  </p>
  {{if .ExpiresAt}}<p style="font-size: 12px;">These links expire {{.ExpiresAt}}.</p>{{end}}
</body>
</html>
`))

type verificationView struct {
	OrderNumber   string
	TransactionID string
	Amount        string
	PaymentStatus enums.PaymentStatus
	SubmittedAt   string
	ApproveURL    string
	RejectURL     string
	ExpiresAt     string
}

// Composer builds the operator e-mail for a submitted payment.
type Composer struct {
	signer   linkSigner
	operator string
	now      func() time.Time
}

func NewComposer(signer linkSigner, operatorEmail string) (*Composer, error) {
	if signer == nil {
		return nil, fmt.Errorf("action link signer required")
	}
	operatorEmail = strings.TrimSpace(operatorEmail)
	if operatorEmail == "" {
		return nil, fmt.Errorf("operator email required")
	}
	return &Composer{signer: signer, operator: operatorEmail, now: time.Now}, nil
}

// VerificationRequest renders the approve/reject e-mail for one submission.
func (c *Composer) VerificationRequest(evt payloads.OrderPaymentSubmittedEvent) (Message, error) {
	if evt.OrderID == uuid.Nil {
		return Message{}, fmt.Errorf("order id missing")
	}
	now := c.now()
	approve, err := c.signer.Sign(evt.OrderID, enums.ReviewActionApprove, now)
	if err != nil {
		return Message{}, fmt.Errorf("sign approve link: %w", err)
	}
	reject, err := c.signer.Sign(evt.OrderID, enums.ReviewActionReject, now)
	if err != nil {
		return Message{}, fmt.Errorf("sign reject link: %w", err)
	}

	view := verificationView{
		OrderNumber:   evt.OrderNumber,
		TransactionID: evt.TransactionID,
		Amount:        decimal.NewFromInt(evt.Total).StringFixed(2),
		PaymentStatus: evt.PaymentStatus,
		SubmittedAt:   evt.SubmittedAt.UTC().Format(time.RFC1123),
		ApproveURL:    approve.URL,
		RejectURL:     reject.URL,
	}
	if approve.ExpiresAt != nil {
		view.ExpiresAt = approve.ExpiresAt.UTC().Format(time.RFC1123)
	}

	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, view); err != nil {
		return Message{}, fmt.Errorf("render verification mail: %w", err)
	}
	return Message{
		To:       c.operator,
		Subject:  fmt.Sprintf("Verify payment for order #%s", evt.OrderNumber),
		HTMLBody: body.String(),
	}, nil
}
