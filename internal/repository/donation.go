package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/repository/dao"
)

var (
	ErrDonationNotFound = dao.ErrDonationNotFound
	ErrDuplicateReceipt = dao.ErrDuplicateReceipt
	ErrInvalidAmount    = dao.ErrInvalidAmount
)

type DonationDAO interface {
	Record(ctx context.Context, donation dao.Donation) (dao.Donation, error)
	ListByUser(ctx context.Context, userID uint) ([]dao.DonationRecord, error)
	FindByReceipt(ctx context.Context, receipt string) (dao.DonationRecord, error)
	SumByUser(ctx context.Context, userID uint) (decimal.Decimal, error)
}

type DonationRepository struct {
	dao DonationDAO
}

func NewDonationRepository(dao DonationDAO) *DonationRepository {
	return &DonationRepository{
		dao: dao,
	}
}

// Record stores d and moves its campaign's raised amount in one transaction.
func (r *DonationRepository) Record(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	recorded, err := r.dao.Record(ctx, dao.Donation{
		ReceiptNumber: d.ReceiptNumber,
		UserID:        d.UserID,
		CampaignID:    d.CampaignID,
		Amount:        d.Amount,
		DonorName:     d.DonorName,
		DonorEmail:    d.DonorEmail,
	})
	if err != nil {
		return domain.Donation{}, fmt.Errorf("r.dao.Record -> %w", err)
	}

	return r.daoToDomain(dao.DonationRecord{Donation: recorded}), nil
}

func (r *DonationRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Donation, error) {
	records, err := r.dao.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListByUser -> %w", err)
	}

	donations := make([]domain.Donation, 0, len(records))
	for _, rec := range records {
		donations = append(donations, r.daoToDomain(rec))
	}

	return donations, nil
}

func (r *DonationRepository) TotalByUser(ctx context.Context, userID uint) (decimal.Decimal, error) {
	total, err := r.dao.SumByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("r.dao.SumByUser -> %w", err)
	}

	return total, nil
}

func (r *DonationRepository) FindByReceipt(ctx context.Context, receipt string) (domain.Donation, error) {
	rec, err := r.dao.FindByReceipt(ctx, receipt)
	if err != nil {
		return domain.Donation{}, fmt.Errorf("r.dao.FindByReceipt -> %w", err)
	}

	return r.daoToDomain(rec), nil
}

func (r *DonationRepository) daoToDomain(rec dao.DonationRecord) domain.Donation {
	return domain.Donation{
		ID:            rec.ID,
		ReceiptNumber: rec.ReceiptNumber,
		UserID:        rec.UserID,
		CampaignID:    rec.CampaignID,
		CampaignTitle: rec.CampaignTitle,
		Amount:        rec.Amount,
		DonorName:     rec.DonorName,
		DonorEmail:    rec.DonorEmail,
		PaymentStatus: domain.PaymentStatus(rec.PaymentStatus),
		CreatedAt:     rec.CreatedAt,
	}
}
