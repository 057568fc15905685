package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryEducation      Category = "education"
	CategoryEmergency      Category = "emergency"
	CategoryScholarship    Category = "scholarship"
	CategoryInfrastructure Category = "infrastructure"
	CategorySupplies       Category = "supplies"
	CategoryOther          Category = "other"
)

var Categories = []Category{
	CategoryEducation,
	CategoryEmergency,
	CategoryScholarship,
	CategoryInfrastructure,
	CategorySupplies,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

func (u Urgency) Valid() bool {
	for _, v := range Urgencies {
		if v == u {
			return true
		}
	}
	return false
}

// Campaign is a fundraising goal. RaisedAmount is owned by the funding ledger
// and always equals the sum of completed donations referencing the campaign.
type Campaign struct {
	ID           uint            `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     Category        `json:"category"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	RaisedAmount decimal.Decimal `json:"raised_amount"`
	Urgency      Urgency         `json:"urgency"`
	ImageURL     *string         `json:"image_url"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Progress is the funded percentage, capped at 100. Overfunding is allowed,
// only the display value saturates.
func (c Campaign) Progress() float64 {
	if !c.TargetAmount.IsPositive() {
		return 0
	}
	p, _ := c.RaisedAmount.Div(c.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if p > 100 {
		return 100
	}
	return p
}

// Remaining goes negative once the campaign is overfunded.
func (c Campaign) Remaining() decimal.Decimal {
	return c.TargetAmount.Sub(c.RaisedAmount)
}

func (c Campaign) GoalReached() bool {
	return c.RaisedAmount.GreaterThanOrEqual(c.TargetAmount)
}

// CampaignFilter narrows the public listing. Zero values mean "any".
type CampaignFilter struct {
	Search   string
	Urgency  Urgency
	Category Category
}

// CampaignUpdate carries only the fields an administrator supplied. RaisedAmount
// is deliberately absent.
type CampaignUpdate struct {
	Title        *string
	Description  *string
	Category     *Category
	TargetAmount *decimal.Decimal
	Urgency      *Urgency
	ImageURL     *string
	IsActive     *bool
}

func (u CampaignUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil && u.TargetAmount == nil &&
		u.Urgency == nil && u.ImageURL == nil && u.IsActive == nil
}

type CampaignStats struct {
	TotalCampaigns  int64           `json:"total_campaigns"`
	ActiveCampaigns int64           `json:"active_campaigns"`
	TotalRaised     decimal.Decimal `json:"total_raised"`
}

// ReconciliationEntry compares a campaign's running total with its ledger.
type ReconciliationEntry struct {
	CampaignID    uint            `json:"campaign_id"`
	Title         string          `json:"title"`
	RaisedAmount  decimal.Decimal `json:"raised_amount"`
	LedgerTotal   decimal.Decimal `json:"ledger_total"`
	DonationCount int64           `json:"donation_count"`
}

func (e ReconciliationEntry) Consistent() bool {
	return e.RaisedAmount.Equal(e.LedgerTotal)
}
