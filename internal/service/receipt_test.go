package service

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/edudonor/donation-api/internal/domain"
)

func TestNewReceiptNumber(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	assert.Regexp(t, regexp.MustCompile(`^EDU-20240305143000-[0-9A-F]{12}$`), NewReceiptNumber("EDU", now))
}

func TestNewReceiptNumber_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		seen[NewReceiptNumber("EDU", now)] = struct{}{}
	}
	assert.Len(t, seen, 10000)
}

func TestRenderReceipt(t *testing.T) {
	title := "Books for Thar schools and a very long campaign name"
	d := domain.Donation{
		ReceiptNumber: "EDU-20240305143000-ABCDEF123456",
		CampaignTitle: &title,
		Amount:        decimal.NewFromInt(2500),
		DonorEmail:    "a@x.com",
		PaymentStatus: domain.PaymentStatusCompleted,
		CreatedAt:     time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}

	text := RenderReceipt(d)
	assert.Contains(t, text, "Receipt Number: EDU-20240305143000-ABCDEF123456")
	assert.Contains(t, text, "Date: March 05, 2024")
	assert.Contains(t, text, "Donor: Anonymous")
	assert.Contains(t, text, "Campaign: Books for Thar schools and a very long")
	assert.NotContains(t, text, "campaign name")
	assert.Contains(t, text, "Rs. 2,500")
	assert.Contains(t, text, "Payment Status: completed")

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		assert.Equal(t, receiptWidth+2, len([]rune(line)), "line %q", line)
	}

	d.CampaignTitle = nil
	assert.Contains(t, RenderReceipt(d), "Campaign: N/A")
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"25000", "25,000"},
		{"1234567.5", "1,234,567.5"},
		{"-4000", "-4,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAmount(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestReceiptFilename(t *testing.T) {
	assert.Equal(t, "EduDonor-Receipt-EDU-1.txt", ReceiptFilename("EDU-1"))
}
