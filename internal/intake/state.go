package intake

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

var (
	ErrActionNotAllowed = errors.New("action not allowed in the current step")
	ErrUnknownPreset    = errors.New("amount is not one of the offered presets")
	ErrUnknownMethod    = errors.New("payment method is not offered")
	ErrUnknownField     = errors.New("unknown donor field")
)

const AuthPath = "/auth"

type Step string

const (
	StepAmountSelection Step = "amount"
	StepPaymentDetails  Step = "payment"
	StepConfirmed       Step = "confirmed"
)

// Flow fixes what a single attempt offers: the target campaign (nil for a
// general donation), the preset amounts and the payment methods.
type Flow struct {
	CampaignID    *uint
	Presets       []decimal.Decimal
	DefaultAmount decimal.Decimal
	Methods       []domain.PaymentMethod
	DefaultMethod domain.PaymentMethod
}

func GeneralFlow() Flow {
	return Flow{
		Presets:       amounts(500, 1000, 2500, 5000, 10000, 25000),
		DefaultAmount: decimal.NewFromInt(1000),
		Methods:       domain.PaymentMethods,
		DefaultMethod: domain.PaymentMethodJazzCash,
	}
}

func CampaignFlow(campaignID uint) Flow {
	return Flow{
		CampaignID:    &campaignID,
		Presets:       amounts(10, 25, 50, 100, 250, 500),
		DefaultAmount: decimal.NewFromInt(25),
		Methods:       []domain.PaymentMethod{domain.PaymentMethodCard},
		DefaultMethod: domain.PaymentMethodCard,
	}
}

func (f Flow) offersPreset(amount decimal.Decimal) bool {
	for _, p := range f.Presets {
		if p.Equal(amount) {
			return true
		}
	}
	return false
}

func (f Flow) offersMethod(m domain.PaymentMethod) bool {
	for _, v := range f.Methods {
		if v == m {
			return true
		}
	}
	return false
}

// Donor holds the free-text payment step inputs.
type Donor struct {
	Name         string `json:"donorName"`
	Email        string `json:"donorEmail"`
	CardNumber   string `json:"cardNumber"`
	Expiry       string `json:"expiry"`
	CVV          string `json:"cvv"`
	MobileNumber string `json:"mobileNumber"`
}

func (d Donor) fields(amount decimal.Decimal) Fields {
	return Fields{
		Amount:       amount,
		DonorName:    d.Name,
		DonorEmail:   d.Email,
		CardNumber:   d.CardNumber,
		Expiry:       d.Expiry,
		CVV:          d.CVV,
		MobileNumber: d.MobileNumber,
	}
}

// State is one of AmountSelection, PaymentDetails or Confirmed.
type State interface {
	Step() Step
	flow() Flow
}

type AmountSelection struct {
	Flow         Flow
	Amount       decimal.Decimal
	CustomAmount string
	Method       domain.PaymentMethod
	Donor        Donor
}

type PaymentDetails struct {
	Flow         Flow
	Amount       decimal.Decimal
	CustomAmount string
	Method       domain.PaymentMethod
	Donor        Donor
	Submitting   bool
	Errors       FieldErrors
	LedgerError  string
}

type Confirmed struct {
	Flow          Flow
	Amount        decimal.Decimal
	ReceiptNumber string
	DonationID    uint
}

func (AmountSelection) Step() Step { return StepAmountSelection }
func (PaymentDetails) Step() Step  { return StepPaymentDetails }
func (Confirmed) Step() Step       { return StepConfirmed }

func (s AmountSelection) flow() Flow { return s.Flow }
func (s PaymentDetails) flow() Flow  { return s.Flow }
func (s Confirmed) flow() Flow       { return s.Flow }

// Start returns the first state of a fresh attempt.
func Start(flow Flow) State {
	return AmountSelection{
		Flow:   flow,
		Amount: flow.DefaultAmount,
		Method: flow.DefaultMethod,
	}
}

// Action is a donor or ledger event fed to Reduce.
type Action interface {
	action()
}

type SelectPreset struct {
	Amount decimal.Decimal
}

type EditCustomAmount struct {
	Value string
}

// Continue moves to the payment step. Identity, when present, prefills an
// empty donor name and e-mail.
type Continue struct {
	Identity *domain.Identity
}

type Back struct{}

type SelectMethod struct {
	Method domain.PaymentMethod
}

type EditField struct {
	Field string
	Value string
}

type Submit struct {
	Identity *domain.Identity
}

type LedgerSucceeded struct {
	Donation domain.Donation
}

type LedgerFailed struct {
	Message string
}

func (SelectPreset) action()     {}
func (EditCustomAmount) action() {}
func (Continue) action()         {}
func (Back) action()             {}
func (SelectMethod) action()     {}
func (EditField) action()        {}
func (Submit) action()           {}
func (LedgerSucceeded) action()  {}
func (LedgerFailed) action()     {}

// Effect is work Reduce asks its caller to perform.
type Effect interface {
	effect()
}

type RecordDonation struct {
	Request domain.DonationRequest
	Actor   domain.Identity
}

type RedirectToAuth struct {
	Path string
}

func (RecordDonation) effect() {}
func (RedirectToAuth) effect() {}

// Reduce applies a to s. It never mutates s and performs no I/O; side effects
// come back as an Effect. A rejected action returns s unchanged with an error.
func Reduce(s State, a Action) (State, Effect, error) {
	switch st := s.(type) {
	case AmountSelection:
		return reduceAmount(st, a)
	case PaymentDetails:
		return reducePayment(st, a)
	default:
		return s, nil, ErrActionNotAllowed
	}
}

func reduceAmount(s AmountSelection, a Action) (State, Effect, error) {
	switch act := a.(type) {
	case SelectPreset:
		if !s.Flow.offersPreset(act.Amount) {
			return s, nil, ErrUnknownPreset
		}
		s.Amount = act.Amount
		s.CustomAmount = ""
		return s, nil, nil

	case EditCustomAmount:
		s.CustomAmount = act.Value
		if v, err := decimal.NewFromString(strings.TrimSpace(act.Value)); err == nil && v.IsPositive() {
			s.Amount = v
		}
		return s, nil, nil

	case Continue:
		donor := s.Donor
		if act.Identity != nil {
			if donor.Name == "" {
				donor.Name = act.Identity.Name
			}
			if donor.Email == "" {
				donor.Email = act.Identity.Email
			}
		}
		return PaymentDetails{
			Flow:         s.Flow,
			Amount:       s.Amount,
			CustomAmount: s.CustomAmount,
			Method:       s.Method,
			Donor:        donor,
		}, nil, nil

	default:
		return s, nil, ErrActionNotAllowed
	}
}

func reducePayment(s PaymentDetails, a Action) (State, Effect, error) {
	if s.Submitting {
		switch act := a.(type) {
		case LedgerSucceeded:
			return Confirmed{
				Flow:          s.Flow,
				Amount:        s.Amount,
				ReceiptNumber: act.Donation.ReceiptNumber,
				DonationID:    act.Donation.ID,
			}, nil, nil
		case LedgerFailed:
			s.Submitting = false
			s.LedgerError = act.Message
			return s, nil, nil
		default:
			return s, nil, ErrActionNotAllowed
		}
	}

	switch act := a.(type) {
	case Back:
		return AmountSelection{
			Flow:         s.Flow,
			Amount:       s.Amount,
			CustomAmount: s.CustomAmount,
			Method:       s.Method,
			Donor:        s.Donor,
		}, nil, nil

	case SelectMethod:
		if !s.Flow.offersMethod(act.Method) {
			return s, nil, ErrUnknownMethod
		}
		s.Method = act.Method
		s.Errors = nil
		return s, nil, nil

	case EditField:
		donor, err := editDonor(s.Donor, act.Field, act.Value)
		if err != nil {
			return s, nil, err
		}
		s.Donor = donor
		return s, nil, nil

	case Submit:
		return submit(s, act)

	default:
		return s, nil, ErrActionNotAllowed
	}
}

func submit(s PaymentDetails, act Submit) (State, Effect, error) {
	s.LedgerError = ""

	if errs := Validate(s.Method, s.Donor.fields(s.Amount)); len(errs) > 0 {
		s.Errors = errs
		return s, nil, nil
	}
	s.Errors = nil

	if act.Identity == nil {
		return s, RedirectToAuth{Path: AuthPath}, nil
	}

	s.Submitting = true
	return s, RecordDonation{
		Request: domain.DonationRequest{
			CampaignID: s.Flow.CampaignID,
			Amount:     s.Amount,
			DonorName:  strings.TrimSpace(s.Donor.Name),
			DonorEmail: strings.TrimSpace(s.Donor.Email),
			Method:     s.Method,
			Payment: domain.PaymentDetails{
				CardNumber:   StripCardNumber(s.Donor.CardNumber),
				Expiry:       s.Donor.Expiry,
				CVV:          s.Donor.CVV,
				MobileNumber: s.Donor.MobileNumber,
			},
		},
		Actor: *act.Identity,
	}, nil
}

// editDonor applies the same input shaping the form does: digits only for
// card, CVV and mobile number, with their maximum lengths.
func editDonor(d Donor, field, value string) (Donor, error) {
	switch field {
	case FieldDonorName:
		d.Name = value
	case FieldDonorEmail:
		d.Email = value
	case FieldCardNumber:
		d.CardNumber = truncate(StripCardNumber(value), 16)
	case FieldExpiry:
		d.Expiry = truncate(value, 5)
	case FieldCVV:
		d.CVV = truncate(StripCardNumber(value), 4)
	case FieldMobileNumber:
		d.MobileNumber = truncate(StripCardNumber(value), 11)
	default:
		return d, ErrUnknownField
	}
	return d, nil
}

// BackAvailable and SubmitAvailable mirror which controls are enabled.
func BackAvailable(s State) bool {
	p, ok := s.(PaymentDetails)
	return ok && !p.Submitting
}

func SubmitAvailable(s State) bool {
	return BackAvailable(s)
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func amounts(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}
