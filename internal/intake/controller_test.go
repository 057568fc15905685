package intake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edudonor/donation-api/internal/domain"
)

type fakeLedger struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
	started chan struct{}
}

func (l *fakeLedger) RecordDonation(ctx context.Context, req domain.DonationRequest, actor *domain.Identity) (domain.Donation, error) {
	l.calls.Add(1)
	if l.started != nil {
		close(l.started)
	}
	if l.release != nil {
		select {
		case <-l.release:
		case <-ctx.Done():
			return domain.Donation{}, ctx.Err()
		}
	}
	if l.err != nil {
		return domain.Donation{}, l.err
	}
	uid := actor.UserID
	return domain.Donation{ID: 1, ReceiptNumber: "EDU-TEST", UserID: &uid, Amount: req.Amount}, nil
}

type refusingGateway struct{}

func (refusingGateway) Authorize(context.Context, domain.DonationRequest) error {
	return errors.New("declined")
}

type messageErr struct{}

func (messageErr) Error() string       { return "campaign gone" }
func (messageErr) UserMessage() string { return "This campaign is no longer accepting donations." }

func readyController(t *testing.T, ledger Ledger, gateway Gateway, timeout time.Duration) *Controller {
	t.Helper()
	c := NewController(GeneralFlow(), ledger, gateway, timeout)
	ctx := context.Background()
	for _, a := range []Action{
		EditCustomAmount{Value: "2500"},
		Continue{Identity: donor},
		SelectMethod{Method: domain.PaymentMethodCard},
		EditField{Field: FieldCardNumber, Value: "4242424242424242"},
		EditField{Field: FieldExpiry, Value: "12/26"},
		EditField{Field: FieldCVV, Value: "123"},
	} {
		_, err := c.Dispatch(ctx, a)
		require.NoError(t, err)
	}
	return c
}

func TestController_SubmitConfirms(t *testing.T) {
	ledger := &fakeLedger{}
	c := readyController(t, ledger, nil, time.Second)

	res, err := c.Dispatch(context.Background(), Submit{Identity: donor})
	require.NoError(t, err)
	confirmed, ok := res.State.(Confirmed)
	require.True(t, ok)
	assert.Equal(t, "EDU-TEST", confirmed.ReceiptNumber)
	assert.Equal(t, int32(1), ledger.calls.Load())
}

func TestController_AnonymousSubmitRedirects(t *testing.T) {
	ledger := &fakeLedger{}
	c := readyController(t, ledger, nil, time.Second)

	res, err := c.Dispatch(context.Background(), Submit{})
	require.NoError(t, err)
	assert.Equal(t, AuthPath, res.Redirect)
	assert.Equal(t, int32(0), ledger.calls.Load())
	assert.Equal(t, "4242424242424242", res.State.(PaymentDetails).Donor.CardNumber)
}

func TestController_SubmitBlocksDuplicates(t *testing.T) {
	ledger := &fakeLedger{release: make(chan struct{}), started: make(chan struct{})}
	c := readyController(t, ledger, nil, time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Dispatch(context.Background(), Submit{Identity: donor})
		assert.NoError(t, err)
	}()
	<-ledger.started

	assert.True(t, c.State().(PaymentDetails).Submitting)
	_, err := c.Dispatch(context.Background(), Submit{Identity: donor})
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	_, err = c.Dispatch(context.Background(), Back{})
	assert.ErrorIs(t, err, ErrActionNotAllowed)

	close(ledger.release)
	wg.Wait()
	assert.Equal(t, int32(1), ledger.calls.Load())
	assert.IsType(t, Confirmed{}, c.State())
}

func TestController_LedgerFailureKeepsFields(t *testing.T) {
	tests := []struct {
		name    string
		ledger  *fakeLedger
		gateway Gateway
		message string
	}{
		{name: "storage error", ledger: &fakeLedger{err: errors.New("disk full")}, message: msgLedgerFailed},
		{name: "error with donor message", ledger: &fakeLedger{err: messageErr{}}, message: "This campaign is no longer accepting donations."},
		{name: "gateway refusal", ledger: &fakeLedger{}, gateway: refusingGateway{}, message: msgLedgerFailed},
		{name: "timeout", ledger: &fakeLedger{release: make(chan struct{})}, message: msgLedgerTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := readyController(t, tt.ledger, tt.gateway, 20*time.Millisecond)

			res, err := c.Dispatch(context.Background(), Submit{Identity: donor})
			require.NoError(t, err)
			p, ok := res.State.(PaymentDetails)
			require.True(t, ok)
			assert.False(t, p.Submitting)
			assert.Equal(t, tt.message, p.LedgerError)
			assert.Equal(t, "4242424242424242", p.Donor.CardNumber)
			assert.Equal(t, "12/26", p.Donor.Expiry)
			assert.True(t, SubmitAvailable(p))
		})
	}
}

func TestController_SurvivesCallerCancellation(t *testing.T) {
	ledger := &fakeLedger{}
	c := readyController(t, ledger, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := c.Dispatch(ctx, Submit{Identity: donor})
	require.NoError(t, err)
	assert.IsType(t, Confirmed{}, res.State)
}
