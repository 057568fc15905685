package intake

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

// View is the presentation snapshot of an attempt. Card number and CVV are
// masked; nothing here is enough to replay a payment.
type View struct {
	SessionID       string                 `json:"session_id,omitempty"`
	Step            Step                   `json:"step"`
	CampaignID      *uint                  `json:"campaign_id,omitempty"`
	Presets         []decimal.Decimal      `json:"presets,omitempty"`
	Amount          decimal.Decimal        `json:"amount"`
	CustomAmount    string                 `json:"custom_amount,omitempty"`
	Methods         []domain.PaymentMethod `json:"methods,omitempty"`
	Method          domain.PaymentMethod   `json:"method,omitempty"`
	Donor           *Donor                 `json:"donor,omitempty"`
	Errors          FieldErrors            `json:"errors,omitempty"`
	LedgerError     string                 `json:"ledger_error,omitempty"`
	Submitting      bool                   `json:"submitting"`
	BackAvailable   bool                   `json:"back_available"`
	SubmitAvailable bool                   `json:"submit_available"`
	ReceiptNumber   string                 `json:"receipt_number,omitempty"`
	Redirect        string                 `json:"redirect,omitempty"`
}

func NewView(s State) View {
	f := s.flow()
	v := View{
		Step:            s.Step(),
		CampaignID:      f.CampaignID,
		BackAvailable:   BackAvailable(s),
		SubmitAvailable: SubmitAvailable(s),
	}

	switch st := s.(type) {
	case AmountSelection:
		v.Presets = f.Presets
		v.Amount = st.Amount
		v.CustomAmount = st.CustomAmount
	case PaymentDetails:
		donor := st.Donor.masked()
		v.Amount = st.Amount
		v.Methods = f.Methods
		v.Method = st.Method
		v.Donor = &donor
		v.Errors = st.Errors
		v.LedgerError = st.LedgerError
		v.Submitting = st.Submitting
	case Confirmed:
		v.Amount = st.Amount
		v.ReceiptNumber = st.ReceiptNumber
	}
	return v
}

func (d Donor) masked() Donor {
	d.CardNumber = maskKeepLast(d.CardNumber, 4)
	d.CVV = strings.Repeat("*", len(d.CVV))
	return d
}

func maskKeepLast(s string, keep int) string {
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}
