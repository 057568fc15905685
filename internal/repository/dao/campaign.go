package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type Campaign struct {
	ID uint `gorm:"primaryKey"`

	Title        string          `gorm:"not null"`
	Description  string          `gorm:"not null"`
	Category     string          `gorm:"not null;index"`
	TargetAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	RaisedAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Urgency      string          `gorm:"not null;index"`
	ImageURL     *string
	IsActive     bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type CampaignFilter struct {
	Search   string
	Urgency  string
	Category string
}

type CampaignStats struct {
	TotalCampaigns  int64
	ActiveCampaigns int64
	TotalRaised     decimal.Decimal
}

type CampaignLedger struct {
	CampaignID    uint
	Title         string
	RaisedAmount  decimal.Decimal
	LedgerTotal   decimal.Decimal
	DonationCount int64
}

type CampaignDAO struct {
	db *gorm.DB
}

func NewCampaignDAO(db *gorm.DB) *CampaignDAO {
	return &CampaignDAO{
		db: db,
	}
}

// ListActive returns active campaigns matching filter, newest first. Search is
// a case-insensitive substring match on title or description.
func (d *CampaignDAO) ListActive(ctx context.Context, filter CampaignFilter) ([]Campaign, error) {
	var campaigns []Campaign

	query := d.db.WithContext(ctx).Where("is_active = ?", true)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filter.Urgency != "" {
		query = query.Where("urgency = ?", filter.Urgency)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	result := query.Order("created_at DESC").Order("id DESC").Find(&campaigns)
	if result.Error != nil {
		return nil, result.Error
	}

	return campaigns, nil
}

func (d *CampaignDAO) ListAll(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign

	result := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&campaigns)
	if result.Error != nil {
		return nil, result.Error
	}

	return campaigns, nil
}

func (d *CampaignDAO) FindByID(ctx context.Context, id uint) (Campaign, error) {
	var campaign Campaign

	result := d.db.WithContext(ctx).First(&campaign, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Campaign{}, ErrCampaignNotFound
		}

		return Campaign{}, result.Error
	}

	return campaign, nil
}

// Insert always starts the campaign at a zero raised amount.
func (d *CampaignDAO) Insert(ctx context.Context, campaign Campaign) (Campaign, error) {
	campaign.ID = 0
	campaign.RaisedAmount = decimal.Zero

	result := d.db.WithContext(ctx).Create(&campaign)
	if result.Error != nil {
		return Campaign{}, result.Error
	}

	return campaign, nil
}

// Update writes only the columns present in fields. raised_amount is never
// accepted here; the ledger owns it.
func (d *CampaignDAO) Update(ctx context.Context, id uint, fields map[string]interface{}) (Campaign, error) {
	delete(fields, "raised_amount")
	delete(fields, "id")

	fields["updated_at"] = time.Now()

	result := d.db.WithContext(ctx).Model(&Campaign{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return Campaign{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Campaign{}, ErrCampaignNotFound
	}

	return d.FindByID(ctx, id)
}

// Delete removes the campaign row only. Donations keep their campaign_id as a
// historical reference.
func (d *CampaignDAO) Delete(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&Campaign{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCampaignNotFound
	}

	return nil
}

func (d *CampaignDAO) Stats(ctx context.Context) (CampaignStats, error) {
	var stats CampaignStats

	result := d.db.WithContext(ctx).Model(&Campaign{}).
		Select("COUNT(*) AS total_campaigns, " +
			"COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active_campaigns, " +
			"COALESCE(SUM(raised_amount), 0) AS total_raised").
		Scan(&stats)
	if result.Error != nil {
		return CampaignStats{}, result.Error
	}

	return stats, nil
}

// Ledgers compares every campaign's raised_amount with the sum of its
// completed donations.
func (d *CampaignDAO) Ledgers(ctx context.Context) ([]CampaignLedger, error) {
	var rows []CampaignLedger

	result := d.db.WithContext(ctx).Table("campaigns AS c").
		Select("c.id AS campaign_id, c.title AS title, c.raised_amount AS raised_amount, "+
			"COALESCE(SUM(d.amount), 0) AS ledger_total, COUNT(d.id) AS donation_count").
		Joins("LEFT JOIN donations AS d ON d.campaign_id = c.id AND d.payment_status = ?", PaymentStatusCompleted).
		Group("c.id, c.title, c.raised_amount").
		Order("c.id").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
