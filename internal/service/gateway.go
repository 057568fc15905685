package service

import (
	"context"
	"time"

	"github.com/edudonor/donation-api/internal/domain"
)

// SimulatedGateway stands in for a payment provider: it waits delay and then
// approves every request. No card or wallet data leaves the process.
type SimulatedGateway struct {
	delay time.Duration
}

func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{
		delay: delay,
	}
}

func (g *SimulatedGateway) Authorize(ctx context.Context, _ domain.DonationRequest) error {
	if g.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(g.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
