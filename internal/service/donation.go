package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/edudonor/donation-api/internal/cache"
	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/intake"
	"github.com/edudonor/donation-api/internal/repository"
)

const qrSize = 256

var (
	ErrDonationNotFound = repository.ErrDonationNotFound
	ErrNotDonationOwner = errors.New("donation belongs to another user")
)

type DonationRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]domain.Donation, error)
	TotalByUser(ctx context.Context, userID uint) (decimal.Decimal, error)
	FindByReceipt(ctx context.Context, receipt string) (domain.Donation, error)
}

type Ledger interface {
	RecordDonation(ctx context.Context, req domain.DonationRequest, actor *domain.Identity) (domain.Donation, error)
}

type Gateway interface {
	Authorize(ctx context.Context, req domain.DonationRequest) error
}

type DonationService struct {
	repo    DonationRepository
	ledger  Ledger
	gateway Gateway
	cache   *cache.QueryCache
	baseURL string
}

func NewDonationService(repo DonationRepository, ledger Ledger, gateway Gateway, qc *cache.QueryCache, baseURL string) *DonationService {
	return &DonationService{
		repo:    repo,
		ledger:  ledger,
		gateway: gateway,
		cache:   qc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Donate validates req with the intake rules and records it in one call.
// Rule failures come back as intake.FieldErrors.
func (s *DonationService) Donate(ctx context.Context, req domain.DonationRequest, actor *domain.Identity) (domain.Donation, error) {
	if actor == nil {
		return domain.Donation{}, ErrUnauthenticated
	}

	errs := intake.Validate(req.Method, intake.Fields{
		Amount:       req.Amount,
		DonorName:    req.DonorName,
		DonorEmail:   req.DonorEmail,
		CardNumber:   req.Payment.CardNumber,
		Expiry:       req.Payment.Expiry,
		CVV:          req.Payment.CVV,
		MobileNumber: req.Payment.MobileNumber,
	})
	if len(errs) > 0 {
		return domain.Donation{}, errs
	}
	req.Payment.CardNumber = intake.StripCardNumber(req.Payment.CardNumber)

	if s.gateway != nil {
		if err := s.gateway.Authorize(ctx, req); err != nil {
			return domain.Donation{}, fmt.Errorf("s.gateway.Authorize -> %w", err)
		}
	}

	donation, err := s.ledger.RecordDonation(ctx, req, actor)
	if err != nil {
		return domain.Donation{}, fmt.Errorf("s.ledger.RecordDonation -> %w", err)
	}

	return donation, nil
}

// History returns the user's donations newest first with their total.
func (s *DonationService) History(ctx context.Context, userID uint) (domain.DonationHistory, error) {
	key := cache.Key(cache.ViewDonations, strconv.FormatUint(uint64(userID), 10))

	history, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (domain.DonationHistory, error) {
		donations, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			return domain.DonationHistory{}, err
		}
		total, err := s.repo.TotalByUser(ctx, userID)
		if err != nil {
			return domain.DonationHistory{}, err
		}
		return domain.DonationHistory{Donations: donations, TotalDonated: total}, nil
	})
	if err != nil {
		return domain.DonationHistory{}, fmt.Errorf("s.repo.ListByUser -> %w", err)
	}

	return history, nil
}

// Receipt returns the donation behind receipt if actor owns it or is an admin.
func (s *DonationService) Receipt(ctx context.Context, receipt string, actor domain.Identity) (domain.Donation, error) {
	d, err := s.repo.FindByReceipt(ctx, receipt)
	if err != nil {
		return domain.Donation{}, fmt.Errorf("s.repo.FindByReceipt -> %w", err)
	}

	if !actor.IsAdmin && (d.UserID == nil || *d.UserID != actor.UserID) {
		return domain.Donation{}, ErrNotDonationOwner
	}

	return d, nil
}

// ReceiptURL is the address encoded in a receipt's QR code.
func (s *DonationService) ReceiptURL(receipt string) string {
	return s.baseURL + "/receipts/" + receipt
}

func (s *DonationService) ReceiptQRCode(d domain.Donation) ([]byte, error) {
	png, err := qrcode.Encode(s.ReceiptURL(d.ReceiptNumber), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("qrcode.Encode -> %w", err)
	}

	return png, nil
}
