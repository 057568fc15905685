package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/edudonor/donation-api/internal/cache"
	"github.com/edudonor/donation-api/internal/domain"
)

var (
	ErrImageStorageDisabled = errors.New("image storage is not configured")
	ErrNothingToUpdate      = errors.New("no fields to update")
	ErrCampaignInactive     = errors.New("campaign is not accepting donations")
)

var defaultTarget = decimal.NewFromInt(5000)

type CampaignRepository interface {
	ListActive(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error)
	ListAll(ctx context.Context) ([]domain.Campaign, error)
	FindByID(ctx context.Context, id uint) (domain.Campaign, error)
	Create(ctx context.Context, c domain.Campaign) (domain.Campaign, error)
	Update(ctx context.Context, id uint, u domain.CampaignUpdate) (domain.Campaign, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (domain.CampaignStats, error)
	Reconciliation(ctx context.Context) ([]domain.ReconciliationEntry, error)
}

type ImageStore interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
}

// CampaignService serves campaign reads through the query cache and invalidates
// the affected views after every administrative write.
type CampaignService struct {
	repo   CampaignRepository
	cache  *cache.QueryCache
	images ImageStore
}

func NewCampaignService(repo CampaignRepository, qc *cache.QueryCache, images ImageStore) *CampaignService {
	return &CampaignService{
		repo:   repo,
		cache:  qc,
		images: images,
	}
}

func (s *CampaignService) List(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	key := cache.Key(cache.ViewCampaigns, strings.ToLower(filter.Search), string(filter.Urgency), string(filter.Category))

	campaigns, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]domain.Campaign, error) {
		return s.repo.ListActive(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListActive -> %w", err)
	}

	return campaigns, nil
}

func (s *CampaignService) ListAll(ctx context.Context) ([]domain.Campaign, error) {
	campaigns, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.ViewAllCampaigns), s.repo.ListAll)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListAll -> %w", err)
	}

	return campaigns, nil
}

func (s *CampaignService) Get(ctx context.Context, id uint) (domain.Campaign, error) {
	key := cache.Key(cache.ViewCampaign, strconv.FormatUint(uint64(id), 10))

	c, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (domain.Campaign, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return c, nil
}

// GetActive returns the campaign only while it accepts donations.
func (s *CampaignService) GetActive(ctx context.Context, id uint) (domain.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if !c.IsActive {
		return domain.Campaign{}, ErrCampaignInactive
	}

	return c, nil
}

// Create fills unset fields with the admin form defaults. The raised amount
// always starts at zero.
func (s *CampaignService) Create(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	if c.Category == "" {
		c.Category = domain.CategoryEducation
	}
	if c.Urgency == "" {
		c.Urgency = domain.UrgencyMedium
	}
	if c.TargetAmount.IsZero() {
		c.TargetAmount = defaultTarget
	}
	c.RaisedAmount = decimal.Zero

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("s.repo.Create -> %w", err)
	}
	s.cache.Invalidate(cache.CreateCampaign)

	zap.L().Info("campaign created", zap.Uint("campaign_id", created.ID), zap.String("title", created.Title))
	return created, nil
}

func (s *CampaignService) Update(ctx context.Context, id uint, u domain.CampaignUpdate) (domain.Campaign, error) {
	if u.Empty() {
		return domain.Campaign{}, ErrNothingToUpdate
	}

	updated, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("s.repo.Update -> %w", err)
	}
	s.cache.Invalidate(cache.UpdateCampaign)

	return updated, nil
}

func (s *CampaignService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}
	s.cache.Invalidate(cache.DeleteCampaign)

	zap.L().Info("campaign deleted", zap.Uint("campaign_id", id))
	return nil
}

func (s *CampaignService) Stats(ctx context.Context) (domain.CampaignStats, error) {
	stats, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.ViewCampaignStats), s.repo.Stats)
	if err != nil {
		return domain.CampaignStats{}, fmt.Errorf("s.repo.Stats -> %w", err)
	}

	return stats, nil
}

// Reconciliation reads straight from storage and returns only the campaigns
// whose raised amount disagrees with their donations, plus how many were
// checked.
func (s *CampaignService) Reconciliation(ctx context.Context) ([]domain.ReconciliationEntry, int, error) {
	entries, err := s.repo.Reconciliation(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("s.repo.Reconciliation -> %w", err)
	}

	mismatches := make([]domain.ReconciliationEntry, 0)
	for _, e := range entries {
		if !e.Consistent() {
			mismatches = append(mismatches, e)
		}
	}
	if len(mismatches) > 0 {
		zap.L().Error("campaign totals drifted from ledger", zap.Int("campaigns", len(mismatches)))
	}

	return mismatches, len(entries), nil
}

// UploadImage stores the image in r and points the campaign at it.
func (s *CampaignService) UploadImage(ctx context.Context, id uint, r io.Reader) (domain.Campaign, error) {
	if s.images == nil {
		return domain.Campaign{}, ErrImageStorageDisabled
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return domain.Campaign{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	url, err := s.images.Upload(ctx, r)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("s.images.Upload -> %w", err)
	}

	return s.Update(ctx, id, domain.CampaignUpdate{ImageURL: &url})
}
