package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const PaymentStatusCompleted = "completed"

// amountScale matches the numeric(14,2) amount columns.
const amountScale = 2

var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrDuplicateReceipt = errors.New("receipt number already issued")
	ErrInvalidAmount    = errors.New("donation amount must be positive with at most 2 decimal places")
)

// Donation rows are append-only. CampaignID carries no foreign key so that
// deleting a campaign leaves its donations untouched.
type Donation struct {
	ID uint `gorm:"primaryKey"`

	ReceiptNumber string `gorm:"uniqueIndex;not null"`
	UserID        *uint  `gorm:"index"`
	CampaignID    *uint  `gorm:"index"`

	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	DonorName     string          `gorm:"not null"`
	DonorEmail    string          `gorm:"not null"`
	PaymentStatus string          `gorm:"not null;default:completed"`

	CreatedAt time.Time `gorm:"not null;index"`
}

// DonationRecord is a donation joined with its campaign title, which is nil
// once the campaign has been deleted.
type DonationRecord struct {
	Donation
	CampaignTitle *string
}

type DonationDAO struct {
	db *gorm.DB
}

func NewDonationDAO(db *gorm.DB) *DonationDAO {
	return &DonationDAO{
		db: db,
	}
}

// Record inserts donation and, when it targets a campaign, adds its amount to
// the campaign's raised_amount in the same transaction. Either both writes
// commit or neither does.
func (d *DonationDAO) Record(ctx context.Context, donation Donation) (Donation, error) {
	if !donation.Amount.IsPositive() || !donation.Amount.Equal(donation.Amount.Round(amountScale)) {
		return Donation{}, ErrInvalidAmount
	}
	donation.ID = 0
	donation.PaymentStatus = PaymentStatusCompleted

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&donation).Error; err != nil {
			if isUniqueViolation(err, "receipt_number") {
				return ErrDuplicateReceipt
			}
			return err
		}

		if donation.CampaignID == nil {
			return nil
		}

		result := tx.Model(&Campaign{}).
			Where("id = ?", *donation.CampaignID).
			Updates(map[string]interface{}{
				"raised_amount": gorm.Expr("raised_amount + ?", donation.Amount),
				"updated_at":    time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCampaignNotFound
		}

		return nil
	})
	if err != nil {
		return Donation{}, err
	}

	return donation, nil
}

func (d *DonationDAO) withCampaignTitle(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx).Table("donations AS d").
		Select("d.*, c.title AS campaign_title").
		Joins("LEFT JOIN campaigns AS c ON c.id = d.campaign_id")
}

// ListByUser returns the user's donations, newest first.
func (d *DonationDAO) ListByUser(ctx context.Context, userID uint) ([]DonationRecord, error) {
	var records []DonationRecord

	result := d.withCampaignTitle(ctx).
		Where("d.user_id = ?", userID).
		Order("d.created_at DESC").Order("d.id DESC").
		Scan(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

func (d *DonationDAO) FindByReceipt(ctx context.Context, receipt string) (DonationRecord, error) {
	var records []DonationRecord

	result := d.withCampaignTitle(ctx).
		Where("d.receipt_number = ?", receipt).
		Limit(1).
		Scan(&records)
	if result.Error != nil {
		return DonationRecord{}, result.Error
	}
	if len(records) == 0 {
		return DonationRecord{}, ErrDonationNotFound
	}

	return records[0], nil
}

func (d *DonationDAO) SumByUser(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var total decimal.Decimal

	row := d.db.WithContext(ctx).Model(&Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND payment_status = ?", userID, PaymentStatusCompleted).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
