package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

// DonationRequest carries payment details for validation only; they are not
// stored.
type DonationRequest struct {
	CampaignID   *uint                `json:"campaign_id"`
	Amount       decimal.Decimal      `json:"amount" swaggertype:"string"`
	DonorName    string               `json:"donor_name"`
	DonorEmail   string               `json:"donor_email"`
	Method       domain.PaymentMethod `json:"method"`
	CardNumber   string               `json:"card_number"`
	Expiry       string               `json:"expiry"`
	CVV          string               `json:"cvv"`
	MobileNumber string               `json:"mobile_number"`
}

// Validate checks only the request shape. Field rules run in the service so
// their messages come back per field.
func (req *DonationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Method, validation.Required, validation.In(paymentMethods()...)),
	)
}

func (req *DonationRequest) ToDomain() domain.DonationRequest {
	return domain.DonationRequest{
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
		Method:     req.Method,
		Payment: domain.PaymentDetails{
			CardNumber:   req.CardNumber,
			Expiry:       req.Expiry,
			CVV:          req.CVV,
			MobileNumber: req.MobileNumber,
		},
	}
}

func paymentMethods() []interface{} {
	out := make([]interface{}, 0, len(domain.PaymentMethods))
	for _, m := range domain.PaymentMethods {
		out = append(out, m)
	}
	return out
}
