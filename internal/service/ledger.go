package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edudonor/donation-api/internal/cache"
	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/repository"
)

const receiptAttempts = 3

var (
	ErrCampaignNotFound = repository.ErrCampaignNotFound
	ErrInvalidAmount    = repository.ErrInvalidAmount
	ErrUnauthenticated  = errors.New("authenticated identity required")
	// ErrLedger wraps every ledger failure that is not a domain error.
	ErrLedger = errors.New("ledger write failed")
)

type LedgerRepository interface {
	Record(ctx context.Context, d domain.Donation) (domain.Donation, error)
}

type CacheInvalidator interface {
	Invalidate(m cache.Mutation)
}

type DonationPublisher interface {
	Publish(event domain.DonationEvent)
}

// donorError carries a message safe to show the donor.
type donorError struct {
	err error
	msg string
}

func (e *donorError) Error() string       { return e.err.Error() }
func (e *donorError) Unwrap() error       { return e.err }
func (e *donorError) UserMessage() string { return e.msg }

type LedgerService struct {
	repo          LedgerRepository
	cache         CacheInvalidator
	feed          DonationPublisher
	receiptPrefix string
	now           func() time.Time
}

func NewLedgerService(repo LedgerRepository, invalidator CacheInvalidator, feed DonationPublisher, receiptPrefix string) *LedgerService {
	return &LedgerService{
		repo:          repo,
		cache:         invalidator,
		feed:          feed,
		receiptPrefix: receiptPrefix,
		now:           time.Now,
	}
}

// RecordDonation writes one completed donation for actor and, for a campaign
// donation, raises the campaign total in the same transaction. On any error
// nothing has been written.
func (s *LedgerService) RecordDonation(ctx context.Context, req domain.DonationRequest, actor *domain.Identity) (domain.Donation, error) {
	if actor == nil {
		return domain.Donation{}, ErrUnauthenticated
	}
	if !domain.ValidAmount(req.Amount) {
		return domain.Donation{}, ErrInvalidAmount
	}

	userID := actor.UserID
	donation := domain.Donation{
		UserID:     &userID,
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
		DonorName:  strings.TrimSpace(req.DonorName),
		DonorEmail: strings.TrimSpace(req.DonorEmail),
	}

	var (
		recorded domain.Donation
		err      error
	)
	for attempt := 0; attempt < receiptAttempts; attempt++ {
		donation.ReceiptNumber = NewReceiptNumber(s.receiptPrefix, s.now())
		recorded, err = s.repo.Record(ctx, donation)
		if !errors.Is(err, repository.ErrDuplicateReceipt) {
			break
		}
	}
	if err != nil {
		zap.L().Error("donation not recorded",
			zap.Uint("user_id", userID),
			zap.Uintp("campaign_id", req.CampaignID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return domain.Donation{}, ledgerError(err)
	}

	zap.L().Info("donation recorded",
		zap.String("receipt_number", recorded.ReceiptNumber),
		zap.Uintp("campaign_id", recorded.CampaignID),
		zap.String("amount", recorded.Amount.String()),
	)

	if s.cache != nil {
		s.cache.Invalidate(cache.CreateDonation)
	}
	if s.feed != nil {
		s.feed.Publish(recorded.Event())
	}

	return recorded, nil
}

func ledgerError(err error) error {
	err = fmt.Errorf("s.repo.Record -> %w", err)
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		return &donorError{err: err, msg: "This campaign is no longer available."}
	case errors.Is(err, ErrInvalidAmount):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrLedger, err)
	default:
		return &donorError{err: fmt.Errorf("%w: %w", ErrLedger, err), msg: "We could not record your donation. Please try again."}
	}
}
