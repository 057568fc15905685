package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edudonor/donation-api/internal/domain"
)

const (
	msgLedgerFailed  = "We could not record your donation. Please try again."
	msgLedgerTimeout = "Recording your donation took too long. Check your donation history before trying again."
)

// Ledger records a validated donation and returns the stored entry.
type Ledger interface {
	RecordDonation(ctx context.Context, req domain.DonationRequest, actor *domain.Identity) (domain.Donation, error)
}

// Gateway stands in for the payment provider.
type Gateway interface {
	Authorize(ctx context.Context, req domain.DonationRequest) error
}

// Result is what a Dispatch call leaves behind. Redirect is set when the donor
// has to sign in before the attempt can be submitted.
type Result struct {
	State    State
	Redirect string
}

// Controller owns the state of one donation attempt and performs the effects
// Reduce asks for. It is safe for concurrent use; while a submission is in
// flight every other action is rejected.
type Controller struct {
	mu      sync.Mutex
	state   State
	ledger  Ledger
	gateway Gateway
	timeout time.Duration
}

func NewController(flow Flow, ledger Ledger, gateway Gateway, timeout time.Duration) *Controller {
	return &Controller{
		state:   Start(flow),
		ledger:  ledger,
		gateway: gateway,
		timeout: timeout,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch reduces a against the current state. A submission blocks until the
// ledger answers or the submit timeout elapses. The ledger call outlives a
// cancelled ctx so a donor disconnect cannot leave the attempt half-recorded.
func (c *Controller) Dispatch(ctx context.Context, a Action) (Result, error) {
	c.mu.Lock()
	next, eff, err := Reduce(c.state, a)
	if err != nil {
		c.mu.Unlock()
		return Result{State: next}, err
	}
	c.state = next
	c.mu.Unlock()

	switch e := eff.(type) {
	case RedirectToAuth:
		return Result{State: next, Redirect: e.Path}, nil
	case RecordDonation:
		return c.record(ctx, e)
	default:
		return Result{State: next}, nil
	}
}

func (c *Controller) record(ctx context.Context, e RecordDonation) (Result, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var outcome Action
	donation, err := c.charge(ctx, e)
	if err != nil {
		zap.L().Warn("donation attempt failed",
			zap.Uint("user_id", e.Actor.UserID),
			zap.String("amount", e.Request.Amount.String()),
			zap.Error(err),
		)
		outcome = LedgerFailed{Message: describe(err)}
	} else {
		outcome = LedgerSucceeded{Donation: donation}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next, _, rerr := Reduce(c.state, outcome)
	if rerr != nil {
		return Result{State: c.state}, rerr
	}
	c.state = next
	return Result{State: next}, nil
}

func (c *Controller) charge(ctx context.Context, e RecordDonation) (domain.Donation, error) {
	if c.gateway != nil {
		if err := c.gateway.Authorize(ctx, e.Request); err != nil {
			return domain.Donation{}, err
		}
	}
	actor := e.Actor
	return c.ledger.RecordDonation(ctx, e.Request, &actor)
}

// UserMessage is implemented by errors that carry a donor-facing explanation.
type UserMessage interface {
	UserMessage() string
}

func describe(err error) string {
	var um UserMessage
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return msgLedgerTimeout
	}
	return msgLedgerFailed
}
