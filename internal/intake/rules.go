package intake

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

const (
	FieldAmount       = "amount"
	FieldDonorName    = "donorName"
	FieldDonorEmail   = "donorEmail"
	FieldCardNumber   = "cardNumber"
	FieldExpiry       = "expiry"
	FieldCVV          = "cvv"
	FieldMobileNumber = "mobileNumber"
)

const (
	msgMinAmount    = "Minimum donation is Rs. 1"
	msgAmountScale  = "Amount can have at most 2 decimal places"
	msgName         = "Name is required"
	msgEmail        = "Valid email is required"
	msgCardNumber   = "Enter a valid 16-digit card number"
	msgExpiry       = "Enter expiry as MM/YY"
	msgCVV          = "Enter a valid CVV"
	msgMobileNumber = "Enter a valid Pakistani mobile number (03XXXXXXXXX)"
)

var (
	cardNumberExp   = regexp.MustCompile(`^\d{16}$`)
	expiryExp       = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvExp          = regexp.MustCompile(`^\d{3,4}$`)
	mobileNumberExp = regexp.MustCompile(`^03\d{9}$`)
	nonDigitExp     = regexp.MustCompile(`\D`)

	minAmount = decimal.NewFromInt(1)
)

// FieldErrors maps a field name to its message. An empty set means the input passed.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := fe.Fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failing field names in a stable order.
func (fe FieldErrors) Fields() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields is the donor-entered form for one attempt.
type Fields struct {
	Amount       decimal.Decimal `json:"amount"`
	DonorName    string          `json:"donorName"`
	DonorEmail   string          `json:"donorEmail"`
	CardNumber   string          `json:"cardNumber"`
	Expiry       string          `json:"expiry"`
	CVV          string          `json:"cvv"`
	MobileNumber string          `json:"mobileNumber"`
}

// StripCardNumber drops spaces, dashes and any other non-digits.
func StripCardNumber(s string) string {
	return nonDigitExp.ReplaceAllString(s, "")
}

// Validate checks every field required by method and reports all failures at
// once. It never fails on well-formed input; an unknown method is reported as
// a field error on "method".
func Validate(method domain.PaymentMethod, f Fields) FieldErrors {
	errs := FieldErrors{}

	var err error
	switch {
	case method == domain.PaymentMethodCard:
		c := cardForm{
			commonForm: newCommonForm(f),
			CardNumber: StripCardNumber(f.CardNumber),
			Expiry:     f.Expiry,
			CVV:        f.CVV,
		}
		err = c.Validate()
	case method.IsMobileWallet():
		w := walletForm{
			commonForm:   newCommonForm(f),
			MobileNumber: f.MobileNumber,
		}
		err = w.Validate()
	default:
		errs["method"] = "Select a payment method"
		c := newCommonForm(f)
		err = c.Validate()
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, e := range verrs {
			errs[field] = e.Error()
		}
	}

	return errs
}

type commonForm struct {
	Amount     decimal.Decimal `json:"amount"`
	DonorName  string          `json:"donorName"`
	DonorEmail string          `json:"donorEmail"`
}

func newCommonForm(f Fields) commonForm {
	return commonForm{
		Amount:     f.Amount,
		DonorName:  strings.TrimSpace(f.DonorName),
		DonorEmail: strings.TrimSpace(f.DonorEmail),
	}
}

func (c *commonForm) fields() []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(&c.Amount, validation.By(atLeast(minAmount, msgMinAmount))),
		validation.Field(&c.DonorName, validation.Required.Error(msgName), validation.RuneLength(2, 0).Error(msgName)),
		validation.Field(&c.DonorEmail, validation.Required.Error(msgEmail), is.Email.Error(msgEmail)),
	}
}

func (c *commonForm) Validate() error {
	return validation.ValidateStruct(c, c.fields()...)
}

type cardForm struct {
	commonForm
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

func (c *cardForm) Validate() error {
	rules := append(c.commonForm.fields(),
		validation.Field(&c.CardNumber, validation.Required.Error(msgCardNumber), validation.Match(cardNumberExp).Error(msgCardNumber)),
		validation.Field(&c.Expiry, validation.Required.Error(msgExpiry), validation.Match(expiryExp).Error(msgExpiry)),
		validation.Field(&c.CVV, validation.Required.Error(msgCVV), validation.Match(cvvExp).Error(msgCVV)),
	)
	return validation.ValidateStruct(c, rules...)
}

type walletForm struct {
	commonForm
	MobileNumber string `json:"mobileNumber"`
}

func (w *walletForm) Validate() error {
	rules := append(w.commonForm.fields(),
		validation.Field(&w.MobileNumber, validation.Required.Error(msgMobileNumber), validation.Match(mobileNumberExp).Error(msgMobileNumber)),
	)
	return validation.ValidateStruct(w, rules...)
}

func atLeast(min decimal.Decimal, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(decimal.Decimal)
		if !ok || d.LessThan(min) {
			return errors.New(msg)
		}
		if !d.Equal(d.Round(domain.AmountScale)) {
			return errors.New(msgAmountScale)
		}
		return nil
	}
}
