package paymentqr

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize       = 256
	dataURLImage = "data:image/png;base64,"
)

// BuildUPILink formats the UPI deep link for one order payment. Parameters
// keep the pa, pn, am, tn, cu order that UPI apps expect.
func BuildUPILink(payeeID, payeeName string, amount decimal.Decimal, orderNumber string) string {
	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(escape(payeeID))
	b.WriteString("&pn=")
	b.WriteString(escape(payeeName))
	b.WriteString("&am=")
	b.WriteString(amount.StringFixed(2))
	b.WriteString("&tn=")
	b.WriteString(escape("Payment for Order #" + orderNumber))
	b.WriteString("&cu=INR")
	return b.String()
}

// escape query-escapes a value with %20 for spaces; several UPI apps show a
// literal '+' otherwise.
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// RenderQR encodes content as a 256px PNG with medium error recovery and
// returns it as a data URL.
func RenderQR(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return dataURLImage + base64.StdEncoding.EncodeToString(png), nil
}
