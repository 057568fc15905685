package intake

import (
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edudonor/donation-api/internal/domain"
)

var donor = &domain.Identity{UserID: 7, Email: "a@x.com", Name: "A Khan"}

func mustReduce(t *testing.T, s State, a Action) State {
	t.Helper()
	next, _, err := Reduce(s, a)
	require.NoError(t, err)
	return next
}

func cardDetails(t *testing.T, amount int64) State {
	t.Helper()
	s := Start(GeneralFlow())
	s = mustReduce(t, s, EditCustomAmount{Value: decimal.NewFromInt(amount).String()})
	s = mustReduce(t, s, Continue{Identity: donor})
	s = mustReduce(t, s, SelectMethod{Method: domain.PaymentMethodCard})
	s = mustReduce(t, s, EditField{Field: FieldCardNumber, Value: "4242 4242 4242 4242"})
	s = mustReduce(t, s, EditField{Field: FieldExpiry, Value: "12/26"})
	s = mustReduce(t, s, EditField{Field: FieldCVV, Value: "123"})
	return s
}

func TestStart(t *testing.T) {
	s, ok := Start(GeneralFlow()).(AmountSelection)
	require.True(t, ok)
	assert.True(t, s.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, s.Flow.CampaignID)

	c, ok := Start(CampaignFlow(3)).(AmountSelection)
	require.True(t, ok)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, uint(3), *c.Flow.CampaignID)
}

func TestReduce_AmountSelection(t *testing.T) {
	s := Start(GeneralFlow())

	s = mustReduce(t, s, SelectPreset{Amount: decimal.NewFromInt(5000)})
	assert.True(t, s.(AmountSelection).Amount.Equal(decimal.NewFromInt(5000)))

	_, _, err := Reduce(s, SelectPreset{Amount: decimal.NewFromInt(7)})
	assert.ErrorIs(t, err, ErrUnknownPreset)

	s = mustReduce(t, s, EditCustomAmount{Value: "750"})
	assert.True(t, s.(AmountSelection).Amount.Equal(decimal.NewFromInt(750)))

	for _, v := range []string{"-5", "0", "abc", ""} {
		s = mustReduce(t, s, EditCustomAmount{Value: v})
		assert.True(t, s.(AmountSelection).Amount.Equal(decimal.NewFromInt(750)), "custom %q", v)
		assert.Equal(t, v, s.(AmountSelection).CustomAmount)
	}

	_, _, err = Reduce(s, Back{})
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	_, _, err = Reduce(s, Submit{Identity: donor})
	assert.ErrorIs(t, err, ErrActionNotAllowed)
}

func TestReduce_ContinuePrefillsIdentity(t *testing.T) {
	s := mustReduce(t, Start(GeneralFlow()), Continue{Identity: donor})
	p := s.(PaymentDetails)
	assert.Equal(t, "A Khan", p.Donor.Name)
	assert.Equal(t, "a@x.com", p.Donor.Email)
	assert.Equal(t, domain.PaymentMethodJazzCash, p.Method)

	anon := mustReduce(t, Start(GeneralFlow()), Continue{}).(PaymentDetails)
	assert.Empty(t, anon.Donor.Name)
}

func TestReduce_BackKeepsEnteredData(t *testing.T) {
	s := cardDetails(t, 2500)
	s = mustReduce(t, s, Back{})
	a := s.(AmountSelection)
	assert.True(t, a.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, "4242424242424242", a.Donor.CardNumber)

	p := mustReduce(t, s, Continue{}).(PaymentDetails)
	assert.Equal(t, domain.PaymentMethodCard, p.Method)
	assert.Equal(t, "12/26", p.Donor.Expiry)
}

func TestReduce_EditFieldShapesInput(t *testing.T) {
	s := mustReduce(t, Start(GeneralFlow()), Continue{})
	s = mustReduce(t, s, EditField{Field: FieldCardNumber, Value: "4242-4242-4242-4242-99"})
	s = mustReduce(t, s, EditField{Field: FieldCVV, Value: "12a345"})
	s = mustReduce(t, s, EditField{Field: FieldMobileNumber, Value: "0300-1234567-8"})
	s = mustReduce(t, s, EditField{Field: FieldExpiry, Value: "12/265"})

	d := s.(PaymentDetails).Donor
	assert.Equal(t, "4242424242424242", d.CardNumber)
	assert.Equal(t, "1234", d.CVV)
	assert.Equal(t, "03001234567", d.MobileNumber)
	assert.Equal(t, "12/26", d.Expiry)

	_, _, err := Reduce(s, EditField{Field: "iban", Value: "x"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestReduce_EditFieldKeepsWholeRunes(t *testing.T) {
	s := mustReduce(t, Start(GeneralFlow()), Continue{})
	s = mustReduce(t, s, EditField{Field: FieldExpiry, Value: "１２/２６７"})

	d := s.(PaymentDetails).Donor
	assert.True(t, utf8.ValidString(d.Expiry))
	assert.Equal(t, "１２/２６", d.Expiry)
}

func TestReduce_SelectMethod(t *testing.T) {
	s := mustReduce(t, Start(CampaignFlow(1)), Continue{})
	_, _, err := Reduce(s, SelectMethod{Method: domain.PaymentMethodJazzCash})
	assert.ErrorIs(t, err, ErrUnknownMethod)

	g := mustReduce(t, Start(GeneralFlow()), Continue{})
	g = mustReduce(t, g, SelectMethod{Method: domain.PaymentMethodEasypaisa})
	assert.Equal(t, domain.PaymentMethodEasypaisa, g.(PaymentDetails).Method)
}

func TestReduce_SubmitInvalidStaysWithErrors(t *testing.T) {
	s := cardDetails(t, 2500)
	s = mustReduce(t, s, EditField{Field: FieldCVV, Value: "1"})

	next, eff, err := Reduce(s, Submit{Identity: donor})
	require.NoError(t, err)
	assert.Nil(t, eff)
	p := next.(PaymentDetails)
	assert.False(t, p.Submitting)
	assert.Equal(t, []string{FieldCVV}, p.Errors.Fields())
}

func TestReduce_SubmitWithoutIdentityRedirects(t *testing.T) {
	s := cardDetails(t, 2500)

	next, eff, err := Reduce(s, Submit{})
	require.NoError(t, err)
	assert.Equal(t, RedirectToAuth{Path: AuthPath}, eff)
	p := next.(PaymentDetails)
	assert.False(t, p.Submitting)
	assert.Equal(t, "4242424242424242", p.Donor.CardNumber)
}

func TestReduce_SubmitAndLedgerOutcome(t *testing.T) {
	s := cardDetails(t, 2500)

	next, eff, err := Reduce(s, Submit{Identity: donor})
	require.NoError(t, err)
	rec, ok := eff.(RecordDonation)
	require.True(t, ok)
	assert.True(t, rec.Request.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, domain.PaymentMethodCard, rec.Request.Method)
	assert.Equal(t, "A Khan", rec.Request.DonorName)
	assert.Nil(t, rec.Request.CampaignID)
	assert.Equal(t, uint(7), rec.Actor.UserID)

	assert.True(t, next.(PaymentDetails).Submitting)
	assert.False(t, BackAvailable(next))
	assert.False(t, SubmitAvailable(next))

	for _, a := range []Action{Back{}, Submit{Identity: donor}, EditField{Field: FieldCVV, Value: "999"}, SelectMethod{Method: domain.PaymentMethodCard}} {
		same, eff, err := Reduce(next, a)
		assert.ErrorIs(t, err, ErrActionNotAllowed)
		assert.Nil(t, eff)
		assert.Equal(t, next, same)
	}

	failed := mustReduce(t, next, LedgerFailed{Message: "boom"}).(PaymentDetails)
	assert.False(t, failed.Submitting)
	assert.Equal(t, "boom", failed.LedgerError)
	assert.Equal(t, "123", failed.Donor.CVV)

	done := mustReduce(t, next, LedgerSucceeded{Donation: domain.Donation{ID: 9, ReceiptNumber: "EDU-1"}})
	c := done.(Confirmed)
	assert.Equal(t, "EDU-1", c.ReceiptNumber)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(2500)))

	_, _, err = Reduce(done, Back{})
	assert.ErrorIs(t, err, ErrActionNotAllowed)
}

func TestReduce_LedgerOutcomeOnlyWhileSubmitting(t *testing.T) {
	s := cardDetails(t, 2500)
	_, _, err := Reduce(s, LedgerSucceeded{})
	assert.ErrorIs(t, err, ErrActionNotAllowed)
}

func TestReduce_CampaignFlowCarriesCampaign(t *testing.T) {
	s := mustReduce(t, Start(CampaignFlow(4)), SelectPreset{Amount: decimal.NewFromInt(100)})
	s = mustReduce(t, s, Continue{Identity: donor})
	s = mustReduce(t, s, EditField{Field: FieldCardNumber, Value: "4242424242424242"})
	s = mustReduce(t, s, EditField{Field: FieldExpiry, Value: "01/27"})
	s = mustReduce(t, s, EditField{Field: FieldCVV, Value: "321"})

	_, eff, err := Reduce(s, Submit{Identity: donor})
	require.NoError(t, err)
	rec := eff.(RecordDonation)
	require.NotNil(t, rec.Request.CampaignID)
	assert.Equal(t, uint(4), *rec.Request.CampaignID)
	assert.True(t, rec.Request.Amount.Equal(decimal.NewFromInt(100)))
}
