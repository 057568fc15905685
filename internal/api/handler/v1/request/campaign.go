package request

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
)

var errTargetNotPositive = errors.New("must be a positive amount")

type CreateCampaignRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Category     domain.Category  `json:"category"`
	TargetAmount *decimal.Decimal `json:"target_amount" swaggertype:"string"`
	Urgency      domain.Urgency   `json:"urgency"`
	ImageURL     *string          `json:"image_url"`
	IsActive     *bool            `json:"is_active"`
}

func (req *CreateCampaignRequest) Validate() error {
	req.Title = strings.TrimSpace(req.Title)

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.RuneLength(3, 200)),
		validation.Field(&req.Description, validation.RuneLength(0, 5000)),
		validation.Field(&req.Category, validation.In(categories()...)),
		validation.Field(&req.TargetAmount, validation.By(positiveAmount)),
		validation.Field(&req.Urgency, validation.In(urgencies()...)),
		validation.Field(&req.ImageURL, validation.NilOrNotEmpty, is.URL),
	)
}

// ToDomain leaves unset fields zero so the service applies its defaults. A
// campaign is active unless the request says otherwise.
func (req *CreateCampaignRequest) ToDomain() domain.Campaign {
	c := domain.Campaign{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Urgency:     req.Urgency,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.TargetAmount != nil {
		c.TargetAmount = *req.TargetAmount
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return c
}

// UpdateCampaignRequest is a partial update. raised_amount is not accepted.
type UpdateCampaignRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Category     *domain.Category `json:"category"`
	TargetAmount *decimal.Decimal `json:"target_amount" swaggertype:"string"`
	Urgency      *domain.Urgency  `json:"urgency"`
	ImageURL     *string          `json:"image_url"`
	IsActive     *bool            `json:"is_active"`
}

func (req *UpdateCampaignRequest) Validate() error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.RuneLength(3, 200)),
		validation.Field(&req.Description, validation.RuneLength(0, 5000)),
		validation.Field(&req.Category, validation.In(categories()...)),
		validation.Field(&req.TargetAmount, validation.By(positiveAmount)),
		validation.Field(&req.Urgency, validation.In(urgencies()...)),
		validation.Field(&req.ImageURL, validation.NilOrNotEmpty, is.URL),
	)
}

func (req *UpdateCampaignRequest) ToDomain() domain.CampaignUpdate {
	return domain.CampaignUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		TargetAmount: req.TargetAmount,
		Urgency:      req.Urgency,
		ImageURL:     req.ImageURL,
		IsActive:     req.IsActive,
	}
}

func positiveAmount(value interface{}) error {
	d, ok := value.(*decimal.Decimal)
	if !ok || d == nil {
		return nil
	}
	if !d.IsPositive() {
		return errTargetNotPositive
	}
	return nil
}

func categories() []interface{} {
	out := make([]interface{}, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, c)
	}
	return out
}

func urgencies() []interface{} {
	out := make([]interface{}, 0, len(domain.Urgencies))
	for _, u := range domain.Urgencies {
		out = append(out, u)
	}
	return out
}
