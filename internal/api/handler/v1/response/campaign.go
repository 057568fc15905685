package response

import (
	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

// Campaign adds the derived progress figures to a campaign.
type Campaign struct {
	domain.Campaign
	Progress        float64         `json:"progress"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	GoalReached     bool            `json:"goal_reached"`
}

func NewCampaign(c domain.Campaign) Campaign {
	return Campaign{
		Campaign:        c,
		Progress:        c.Progress(),
		RemainingAmount: c.Remaining(),
		GoalReached:     c.GoalReached(),
	}
}

func NewCampaigns(cs []domain.Campaign) []Campaign {
	out := make([]Campaign, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewCampaign(c))
	}
	return out
}

type Reconciliation struct {
	Checked    int                          `json:"checked"`
	Consistent bool                         `json:"consistent"`
	Mismatches []domain.ReconciliationEntry `json:"mismatches"`
}
