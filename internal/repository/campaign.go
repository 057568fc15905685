package repository

import (
	"context"
	"fmt"

	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/repository/dao"
)

var ErrCampaignNotFound = dao.ErrCampaignNotFound

type CampaignDAO interface {
	ListActive(ctx context.Context, filter dao.CampaignFilter) ([]dao.Campaign, error)
	ListAll(ctx context.Context) ([]dao.Campaign, error)
	FindByID(ctx context.Context, id uint) (dao.Campaign, error)
	Insert(ctx context.Context, campaign dao.Campaign) (dao.Campaign, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) (dao.Campaign, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (dao.CampaignStats, error)
	Ledgers(ctx context.Context) ([]dao.CampaignLedger, error)
}

type CampaignRepository struct {
	dao CampaignDAO
}

func NewCampaignRepository(dao CampaignDAO) *CampaignRepository {
	return &CampaignRepository{
		dao: dao,
	}
}

func (r *CampaignRepository) ListActive(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	found, err := r.dao.ListActive(ctx, dao.CampaignFilter{
		Search:   filter.Search,
		Urgency:  string(filter.Urgency),
		Category: string(filter.Category),
	})
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListActive -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *CampaignRepository) ListAll(ctx context.Context) ([]domain.Campaign, error) {
	found, err := r.dao.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListAll -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id uint) (domain.Campaign, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *CampaignRepository) Create(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	created, err := r.dao.Insert(ctx, dao.Campaign{
		Title:        c.Title,
		Description:  c.Description,
		Category:     string(c.Category),
		TargetAmount: c.TargetAmount,
		Urgency:      string(c.Urgency),
		ImageURL:     c.ImageURL,
		IsActive:     c.IsActive,
	})
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *CampaignRepository) Update(ctx context.Context, id uint, u domain.CampaignUpdate) (domain.Campaign, error) {
	updated, err := r.dao.Update(ctx, id, r.updateToFields(u))
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *CampaignRepository) Stats(ctx context.Context) (domain.CampaignStats, error) {
	stats, err := r.dao.Stats(ctx)
	if err != nil {
		return domain.CampaignStats{}, fmt.Errorf("r.dao.Stats -> %w", err)
	}

	return domain.CampaignStats{
		TotalCampaigns:  stats.TotalCampaigns,
		ActiveCampaigns: stats.ActiveCampaigns,
		TotalRaised:     stats.TotalRaised,
	}, nil
}

func (r *CampaignRepository) Reconciliation(ctx context.Context) ([]domain.ReconciliationEntry, error) {
	ledgers, err := r.dao.Ledgers(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Ledgers -> %w", err)
	}

	entries := make([]domain.ReconciliationEntry, 0, len(ledgers))
	for _, l := range ledgers {
		entries = append(entries, domain.ReconciliationEntry{
			CampaignID:    l.CampaignID,
			Title:         l.Title,
			RaisedAmount:  l.RaisedAmount,
			LedgerTotal:   l.LedgerTotal,
			DonationCount: l.DonationCount,
		})
	}

	return entries, nil
}

func (r *CampaignRepository) updateToFields(u domain.CampaignUpdate) map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Category != nil {
		fields["category"] = string(*u.Category)
	}
	if u.TargetAmount != nil {
		fields["target_amount"] = *u.TargetAmount
	}
	if u.Urgency != nil {
		fields["urgency"] = string(*u.Urgency)
	}
	if u.ImageURL != nil {
		fields["image_url"] = *u.ImageURL
	}
	if u.IsActive != nil {
		fields["is_active"] = *u.IsActive
	}

	return fields
}

func (r *CampaignRepository) daoToDomain(c dao.Campaign) domain.Campaign {
	return domain.Campaign{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Category:     domain.Category(c.Category),
		TargetAmount: c.TargetAmount,
		RaisedAmount: c.RaisedAmount,
		Urgency:      domain.Urgency(c.Urgency),
		ImageURL:     c.ImageURL,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (r *CampaignRepository) daosToDomain(cs []dao.Campaign) []domain.Campaign {
	campaigns := make([]domain.Campaign, 0, len(cs))
	for _, c := range cs {
		campaigns = append(campaigns, r.daoToDomain(c))
	}

	return campaigns
}
