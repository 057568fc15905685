package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edudonor/donation-api/internal/api/handler/v1/request"
	"github.com/edudonor/donation-api/internal/api/handler/v1/response"
	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/service"
	"github.com/edudonor/donation-api/internal/storage"
)

const maxImageBytes = 10 << 20

type CampaignService interface {
	List(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error)
	ListAll(ctx context.Context) ([]domain.Campaign, error)
	GetActive(ctx context.Context, id uint) (domain.Campaign, error)
	Create(ctx context.Context, c domain.Campaign) (domain.Campaign, error)
	Update(ctx context.Context, id uint, u domain.CampaignUpdate) (domain.Campaign, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (domain.CampaignStats, error)
	Reconciliation(ctx context.Context) ([]domain.ReconciliationEntry, int, error)
	UploadImage(ctx context.Context, id uint, r io.Reader) (domain.Campaign, error)
}

type CampaignHandler struct {
	svc CampaignService
}

func NewCampaignHandler(svc CampaignService) *CampaignHandler {
	return &CampaignHandler{
		svc: svc,
	}
}

// HandleListCampaigns godoc
// @Summary      List active campaigns
// @Tags         campaigns
// @Produce      json
// @Param        search    query     string  false  "case-insensitive match on title or description"
// @Param        urgency   query     string  false  "low, medium, high or critical"
// @Param        category  query     string  false  "campaign category"
// @Success      200  {array}   response.Campaign
// @Failure      400  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /campaigns [get]
func (h *CampaignHandler) HandleListCampaigns(ctx *gin.Context) {
	filter := domain.CampaignFilter{
		Search:   strings.TrimSpace(ctx.Query("search")),
		Urgency:  domain.Urgency(ctx.Query("urgency")),
		Category: domain.Category(ctx.Query("category")),
	}
	if filter.Urgency != "" && !filter.Urgency.Valid() {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("unknown urgency %q", filter.Urgency)))
		return
	}
	if filter.Category != "" && !filter.Category.Valid() {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("unknown category %q", filter.Category)))
		return
	}

	campaigns, err := h.svc.List(ctx.Request.Context(), filter)
	if err != nil {
		err = fmt.Errorf("v1.HandleListCampaigns -> h.svc.List -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewCampaigns(campaigns))
}

// HandleGetCampaign godoc
// @Summary      Get an active campaign
// @Tags         campaigns
// @Produce      json
// @Param        campaignID  path  int  true  "Campaign ID"
// @Success      200  {object}  response.Campaign
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /campaigns/{campaignID} [get]
func (h *CampaignHandler) HandleGetCampaign(ctx *gin.Context) {
	id, err := parseUintParam(ctx, "campaignID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	campaign, err := h.svc.GetActive(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCampaignNotFound) || errors.Is(err, service.ErrCampaignInactive) {
			response.RenderErr(ctx, response.ErrNotFound("campaign", "ID", id))
			return
		}

		err = fmt.Errorf("v1.HandleGetCampaign -> h.svc.GetActive -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewCampaign(campaign))
}

// HandleListAllCampaigns godoc
// @Summary      List every campaign
// @Description  Includes inactive campaigns.
// @Tags         admin
// @Produce      json
// @Success      200  {array}   response.Campaign
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/campaigns [get]
// @Security BearerAuth
func (h *CampaignHandler) HandleListAllCampaigns(ctx *gin.Context) {
	campaigns, err := h.svc.ListAll(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleListAllCampaigns -> h.svc.ListAll -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewCampaigns(campaigns))
}

// HandleCreateCampaign godoc
// @Summary      Create a campaign
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request  body  request.CreateCampaignRequest  true  "request body"
// @Success      201  {object}  response.Campaign
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/campaigns [post]
// @Security BearerAuth
func (h *CampaignHandler) HandleCreateCampaign(ctx *gin.Context) {
	var req request.CreateCampaignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	campaign, err := h.svc.Create(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		err = fmt.Errorf("v1.HandleCreateCampaign -> h.svc.Create -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, response.NewCampaign(campaign))
}

// HandleUpdateCampaign godoc
// @Summary      Update campaign fields
// @Description  Only supplied fields change. The raised amount is not writable.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        campaignID  path  int                            true  "Campaign ID"
// @Param        request     body  request.UpdateCampaignRequest  true  "request body"
// @Success      200  {object}  response.Campaign
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/campaigns/{campaignID} [patch]
// @Security BearerAuth
func (h *CampaignHandler) HandleUpdateCampaign(ctx *gin.Context) {
	id, err := parseUintParam(ctx, "campaignID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var req request.UpdateCampaignRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err = req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	campaign, err := h.svc.Update(ctx.Request.Context(), id, req.ToDomain())
	if err != nil {
		h.renderWriteErr(ctx, id, fmt.Errorf("v1.HandleUpdateCampaign -> h.svc.Update -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewCampaign(campaign))
}

// HandleDeleteCampaign godoc
// @Summary      Delete a campaign
// @Description  Donations to the campaign are kept.
// @Tags         admin
// @Param        campaignID  path  int  true  "Campaign ID"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/campaigns/{campaignID} [delete]
// @Security BearerAuth
func (h *CampaignHandler) HandleDeleteCampaign(ctx *gin.Context) {
	id, err := parseUintParam(ctx, "campaignID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err = h.svc.Delete(ctx.Request.Context(), id); err != nil {
		h.renderWriteErr(ctx, id, fmt.Errorf("v1.HandleDeleteCampaign -> h.svc.Delete -> %w", err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleUploadCampaignImage godoc
// @Summary      Upload a campaign image
// @Description  The image is resized, re-encoded as JPEG and stored; the campaign's image_url points at it.
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        campaignID  path      int   true  "Campaign ID"
// @Param        image       formData  file  true  "image file"
// @Success      200  {object}  response.Campaign
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      503  {object}  response.Err
// @Router       /admin/campaigns/{campaignID}/image [post]
// @Security BearerAuth
func (h *CampaignHandler) HandleUploadCampaignImage(ctx *gin.Context) {
	id, err := parseUintParam(ctx, "campaignID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxImageBytes)
	header, err := ctx.FormFile("image")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("image file is required: %w", err)))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	defer file.Close()

	campaign, err := h.svc.UploadImage(ctx.Request.Context(), id, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageStorageDisabled):
			response.RenderErr(ctx, response.ErrServiceUnavailable(err))
		case errors.Is(err, storage.ErrNotAnImage):
			response.RenderErr(ctx, response.ErrBadRequest(storage.ErrNotAnImage))
		default:
			h.renderWriteErr(ctx, id, fmt.Errorf("v1.HandleUploadCampaignImage -> h.svc.UploadImage -> %w", err))
		}
		return
	}

	ctx.JSON(http.StatusOK, response.NewCampaign(campaign))
}

// HandleCampaignStats godoc
// @Summary      Campaign totals
// @Tags         admin
// @Produce      json
// @Success      200  {object}  domain.CampaignStats
// @Failure      500  {object}  response.Err
// @Router       /admin/stats [get]
// @Security BearerAuth
func (h *CampaignHandler) HandleCampaignStats(ctx *gin.Context) {
	stats, err := h.svc.Stats(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleCampaignStats -> h.svc.Stats -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// HandleReconciliation godoc
// @Summary      Compare campaign totals with their donations
// @Tags         admin
// @Produce      json
// @Success      200  {object}  response.Reconciliation
// @Failure      500  {object}  response.Err
// @Router       /admin/reconciliation [get]
// @Security BearerAuth
func (h *CampaignHandler) HandleReconciliation(ctx *gin.Context) {
	mismatches, checked, err := h.svc.Reconciliation(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleReconciliation -> h.svc.Reconciliation -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
	if mismatches == nil {
		mismatches = []domain.ReconciliationEntry{}
	}

	ctx.JSON(http.StatusOK, response.Reconciliation{
		Checked:    checked,
		Consistent: len(mismatches) == 0,
		Mismatches: mismatches,
	})
}

func (h *CampaignHandler) renderWriteErr(ctx *gin.Context, id uint, err error) {
	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		response.RenderErr(ctx, response.ErrNotFound("campaign", "ID", id))
	case errors.Is(err, service.ErrNothingToUpdate):
		response.RenderErr(ctx, response.ErrBadRequest(service.ErrNothingToUpdate))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}
