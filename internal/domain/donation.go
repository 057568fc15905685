package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

// Payment is simulated, so completed is the only status ever written.
const PaymentStatusCompleted PaymentStatus = "completed"

type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodJazzCash  PaymentMethod = "jazzcash"
	PaymentMethodEasypaisa PaymentMethod = "easypaisa"
)

var PaymentMethods = []PaymentMethod{PaymentMethodJazzCash, PaymentMethodEasypaisa, PaymentMethodCard}

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m.IsMobileWallet()
}

func (m PaymentMethod) IsMobileWallet() bool {
	return m == PaymentMethodJazzCash || m == PaymentMethodEasypaisa
}

// AmountScale is the number of decimal places a ledger amount is stored with.
const AmountScale int32 = 2

// ValidAmount reports whether d can be stored without rounding.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(AmountScale))
}

// Donation is an immutable ledger entry.
type Donation struct {
	ID            uint            `json:"id"`
	ReceiptNumber string          `json:"receipt_number"`
	UserID        *uint           `json:"user_id"`
	CampaignID    *uint           `json:"campaign_id"`
	CampaignTitle *string         `json:"campaign_title,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	DonorName     string          `json:"donor_name"`
	DonorEmail    string          `json:"donor_email"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentDetails are checked by the validation rules and then dropped; they
// never reach storage.
type PaymentDetails struct {
	CardNumber   string
	Expiry       string
	CVV          string
	MobileNumber string
}

// DonationRequest is the validated output of the intake flow. A nil CampaignID
// is a general, undirected donation.
type DonationRequest struct {
	CampaignID *uint
	Amount     decimal.Decimal
	DonorName  string
	DonorEmail string
	Method     PaymentMethod
	Payment    PaymentDetails
}

type DonationHistory struct {
	Donations    []Donation      `json:"donations"`
	TotalDonated decimal.Decimal `json:"total_donated"`
}

// DonationEvent is what the live feed publishes; it omits the donor e-mail.
type DonationEvent struct {
	ReceiptNumber string          `json:"receipt_number"`
	CampaignID    *uint           `json:"campaign_id"`
	Amount        decimal.Decimal `json:"amount"`
	DonorName     string          `json:"donor_name"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (d Donation) Event() DonationEvent {
	return DonationEvent{
		ReceiptNumber: d.ReceiptNumber,
		CampaignID:    d.CampaignID,
		Amount:        d.Amount,
		DonorName:     d.DonorName,
		CreatedAt:     d.CreatedAt,
	}
}
