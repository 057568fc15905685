package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edudonor/donation-api/internal/cache"
	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/repository"
	"github.com/edudonor/donation-api/internal/repository/dao"
)

type fixture struct {
	db        *gorm.DB
	cache     *cache.QueryCache
	feed      *recordingFeed
	campaigns *CampaignService
	ledger    *LedgerService
	donations *DonationService
}

type recordingFeed struct {
	mu     sync.Mutex
	events []domain.DonationEvent
}

func (f *recordingFeed) Publish(e domain.DonationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *recordingFeed) Events() []domain.DonationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DonationEvent(nil), f.events...)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, dao.InitTables(db))
	return db
}

func newFixture(t *testing.T, images ImageStore) *fixture {
	t.Helper()

	db := newTestDB(t)
	qc := cache.New(time.Minute)
	feed := &recordingFeed{}

	campaignRepo := repository.NewCampaignRepository(dao.NewCampaignDAO(db))
	donationRepo := repository.NewDonationRepository(dao.NewDonationDAO(db))
	ledger := NewLedgerService(donationRepo, qc, feed, "EDU")

	return &fixture{
		db:        db,
		cache:     qc,
		feed:      feed,
		campaigns: NewCampaignService(campaignRepo, qc, images),
		ledger:    ledger,
		donations: NewDonationService(donationRepo, ledger, NewSimulatedGateway(0), qc, "https://edudonor.example/"),
	}
}

func (f *fixture) campaign(t *testing.T, title string, active bool) domain.Campaign {
	t.Helper()
	c, err := f.campaigns.Create(context.Background(), domain.Campaign{
		Title:        title,
		Description:  title + " description",
		TargetAmount: decimal.NewFromInt(10000),
		IsActive:     active,
	})
	require.NoError(t, err)
	return c
}

var actor = &domain.Identity{UserID: 7, Email: "a@x.com", Name: "A Khan"}

func donationRequest(campaignID *uint, amount int64) domain.DonationRequest {
	return domain.DonationRequest{
		CampaignID: campaignID,
		Amount:     decimal.NewFromInt(amount),
		DonorName:  "A Khan",
		DonorEmail: "a@x.com",
		Method:     domain.PaymentMethodCard,
		Payment: domain.PaymentDetails{
			CardNumber: "4242 4242 4242 4242",
			Expiry:     "12/26",
			CVV:        "123",
		},
	}
}
