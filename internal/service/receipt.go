package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

const receiptSuffixLen = 12

// NewReceiptNumber returns "<prefix>-<yyyymmddhhmmss>-<12 random hex>". The
// random part carries 48 bits from a v4 UUID; the unique index on the column
// catches the rest.
func NewReceiptNumber(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:receiptSuffixLen]
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}

const receiptWidth = 52

// RenderReceipt is the plain-text receipt offered for download. Every line is
// receiptWidth+2 runes wide; long values are cut to fit.
func RenderReceipt(d domain.Donation) string {
	title := "N/A"
	if d.CampaignTitle != nil && *d.CampaignTitle != "" {
		title = *d.CampaignTitle
	}

	var b strings.Builder
	rule := func(left, right string) {
		b.WriteString(left + strings.Repeat("═", receiptWidth) + right + "\n")
	}
	row := func(text string) {
		b.WriteString("║" + padRunes(text, receiptWidth) + "║\n")
	}
	field := func(label, value string) {
		row("  " + label + ": " + value)
	}
	centered := func(text string) {
		left := (receiptWidth - len([]rune(text))) / 2
		row(strings.Repeat(" ", left) + text)
	}

	rule("╔", "╗")
	centered("EDUDONOR DONATION RECEIPT")
	rule("╠", "╣")
	row("")
	field("Receipt Number", d.ReceiptNumber)
	field("Date", d.CreatedAt.Format("January 02, 2006"))
	row("")
	field("Donor", orDefault(d.DonorName, "Anonymous"))
	field("Email", orDefault(d.DonorEmail, "N/A"))
	row("")
	field("Campaign", title)
	row("")
	field("Amount Donated", "Rs. "+formatAmount(d.Amount))
	field("Payment Status", string(d.PaymentStatus))
	row("")
	rule("╠", "╣")
	centered("Thank you for your generous contribution!")
	centered("Your donation makes education accessible.")
	rule("╚", "╝")

	return b.String()
}

// ReceiptFilename is the download name for a receipt.
func ReceiptFilename(receipt string) string {
	return "EduDonor-Receipt-" + receipt + ".txt"
}

// formatAmount groups the integer part in thousands: 1234567.5 -> 1,234,567.5.
func formatAmount(d decimal.Decimal) string {
	s := d.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}

	return sign + string(out) + frac
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// padRunes cuts s to n runes or pads it with spaces up to n.
func padRunes(s string, n int) string {
	r := []rune(s)
	if len(r) >= n {
		return string(r[:n])
	}
	return s + strings.Repeat(" ", n-len(r))
}
