package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edudonor/donation-api/internal/api/handler/v1/request"
	"github.com/edudonor/donation-api/internal/api/handler/v1/response"
	"github.com/edudonor/donation-api/internal/api/middleware"
	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/intake"
	"github.com/edudonor/donation-api/internal/service"
)

const msgDonationTimeout = "Recording your donation took too long. Check your donation history before trying again."

type DonationService interface {
	Donate(ctx context.Context, req domain.DonationRequest, actor *domain.Identity) (domain.Donation, error)
	History(ctx context.Context, userID uint) (domain.DonationHistory, error)
	Receipt(ctx context.Context, receipt string, actor domain.Identity) (domain.Donation, error)
	ReceiptQRCode(d domain.Donation) ([]byte, error)
}

// ActiveCampaigns resolves a campaign that can still take donations.
type ActiveCampaigns interface {
	GetActive(ctx context.Context, id uint) (domain.Campaign, error)
}

type DonationHandler struct {
	svc       DonationService
	campaigns ActiveCampaigns
	timeout   time.Duration
}

// NewDonationHandler bounds each donation by timeout, counted from the moment
// the request is accepted.
func NewDonationHandler(svc DonationService, campaigns ActiveCampaigns, timeout time.Duration) *DonationHandler {
	return &DonationHandler{
		svc:       svc,
		campaigns: campaigns,
		timeout:   timeout,
	}
}

// HandleDonate godoc
// @Summary      Make a donation
// @Description  Runs the same field rules as the intake flow; failures come back per field with 422.
// @Tags         donations
// @Accept       json
// @Produce      json
// @Param        request  body  request.DonationRequest  true  "request body"
// @Success      201  {object}  domain.Donation
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      422  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Failure      504  {object}  response.Err
// @Router       /donations [post]
// @Security BearerAuth
func (h *DonationHandler) HandleDonate(ctx *gin.Context) {
	identity := middleware.IdentityFrom(ctx)
	if identity == nil {
		response.RenderErr(ctx, response.ErrUnauthorized(errNoIdentity))
		return
	}

	var req request.DonationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if req.CampaignID != nil {
		if _, err := h.campaigns.GetActive(ctx.Request.Context(), *req.CampaignID); err != nil {
			renderLedgerErr(ctx, req.CampaignID, fmt.Errorf("v1.HandleDonate -> h.campaigns.GetActive -> %w", err))
			return
		}
	}

	// The write must not be abandoned halfway because the client went away.
	donateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), h.timeout)
	defer cancel()

	donation, err := h.svc.Donate(donateCtx, req.ToDomain(), identity)
	if err != nil {
		renderLedgerErr(ctx, req.CampaignID, fmt.Errorf("v1.HandleDonate -> h.svc.Donate -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, donation)
}

// HandleDonationHistory godoc
// @Summary      The caller's donations
// @Description  Newest first, with the campaign title when the campaign still exists.
// @Tags         donations
// @Produce      json
// @Success      200  {object}  domain.DonationHistory
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /donations [get]
// @Security BearerAuth
func (h *DonationHandler) HandleDonationHistory(ctx *gin.Context) {
	identity := middleware.IdentityFrom(ctx)
	if identity == nil {
		response.RenderErr(ctx, response.ErrUnauthorized(errNoIdentity))
		return
	}

	history, err := h.svc.History(ctx.Request.Context(), identity.UserID)
	if err != nil {
		err = fmt.Errorf("v1.HandleDonationHistory -> h.svc.History -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
	if history.Donations == nil {
		history.Donations = []domain.Donation{}
	}

	ctx.JSON(http.StatusOK, history)
}

// HandleDownloadReceipt godoc
// @Summary      Download a text receipt
// @Tags         donations
// @Produce      plain
// @Param        receipt  path  string  true  "Receipt number"
// @Success      200  {string}  string
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /donations/{receipt}/receipt [get]
// @Security BearerAuth
func (h *DonationHandler) HandleDownloadReceipt(ctx *gin.Context) {
	donation, ok := h.ownedDonation(ctx)
	if !ok {
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ReceiptFilename(donation.ReceiptNumber)))
	ctx.String(http.StatusOK, service.RenderReceipt(donation))
}

// HandleReceiptQRCode godoc
// @Summary      Receipt QR code
// @Description  PNG encoding the public receipt address.
// @Tags         donations
// @Produce      png
// @Param        receipt  path  string  true  "Receipt number"
// @Success      200  {file}    binary
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /donations/{receipt}/qrcode [get]
// @Security BearerAuth
func (h *DonationHandler) HandleReceiptQRCode(ctx *gin.Context) {
	donation, ok := h.ownedDonation(ctx)
	if !ok {
		return
	}

	png, err := h.svc.ReceiptQRCode(donation)
	if err != nil {
		err = fmt.Errorf("v1.HandleReceiptQRCode -> h.svc.ReceiptQRCode -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.Data(http.StatusOK, "image/png", png)
}

func (h *DonationHandler) ownedDonation(ctx *gin.Context) (domain.Donation, bool) {
	identity := middleware.IdentityFrom(ctx)
	if identity == nil {
		response.RenderErr(ctx, response.ErrUnauthorized(errNoIdentity))
		return domain.Donation{}, false
	}

	receipt := ctx.Param("receipt")
	donation, err := h.svc.Receipt(ctx.Request.Context(), receipt, *identity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDonationNotFound):
			response.RenderErr(ctx, response.ErrNotFound("donation", "receipt", receipt))
		case errors.Is(err, service.ErrNotDonationOwner):
			response.RenderErr(ctx, response.ErrPermissionDenied(service.ErrNotDonationOwner))
		default:
			err = fmt.Errorf("v1.ownedDonation -> h.svc.Receipt -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return domain.Donation{}, false
	}

	return donation, true
}

// renderLedgerErr maps a failed donation to its response. Messages from the
// ledger that are meant for the donor are passed through.
func renderLedgerErr(ctx *gin.Context, campaignID *uint, err error) {
	var fieldErrs intake.FieldErrors
	if errors.As(err, &fieldErrs) {
		response.RenderErr(ctx, response.ErrValidation(fieldErrs, fieldErrs))
		return
	}

	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		var id interface{} = "none"
		if campaignID != nil {
			id = *campaignID
		}
		response.RenderErr(ctx, response.ErrNotFound("campaign", "ID", id))
		return
	case errors.Is(err, service.ErrCampaignInactive):
		response.RenderErr(ctx, response.ErrConflict(service.ErrCampaignInactive))
		return
	case errors.Is(err, service.ErrInvalidAmount):
		response.RenderErr(ctx, response.ErrBadRequest(service.ErrInvalidAmount))
		return
	case errors.Is(err, service.ErrUnauthenticated):
		response.RenderErr(ctx, response.ErrUnauthorized(service.ErrUnauthenticated))
		return
	}

	var um intake.UserMessage
	if errors.As(err, &um) {
		response.RenderErr(ctx, response.ErrLedger(err, um.UserMessage()))
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		response.RenderErr(ctx, response.ErrGatewayTimeout(err, msgDonationTimeout))
		return
	}

	response.RenderErr(ctx, response.ErrInternalServerError(err))
}
