package v1

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edudonor/donation-api/internal/api/handler/v1/request"
	"github.com/edudonor/donation-api/internal/api/handler/v1/response"
	"github.com/edudonor/donation-api/internal/api/middleware"
	"github.com/edudonor/donation-api/internal/intake"
	"github.com/edudonor/donation-api/internal/service"
)

// IntakeHandler exposes donation attempts as server-side sessions. Each
// session owns one intake.Controller; the client only sends actions and
// renders the returned view.
type IntakeHandler struct {
	sessions  *intake.SessionStore
	campaigns ActiveCampaigns
	ledger    intake.Ledger
	gateway   intake.Gateway
	timeout   time.Duration
}

func NewIntakeHandler(sessions *intake.SessionStore, campaigns ActiveCampaigns, ledger intake.Ledger, gateway intake.Gateway, timeout time.Duration) *IntakeHandler {
	return &IntakeHandler{
		sessions:  sessions,
		campaigns: campaigns,
		ledger:    ledger,
		gateway:   gateway,
		timeout:   timeout,
	}
}

// HandleStartIntake godoc
// @Summary      Start a donation attempt
// @Description  Without campaign_id the attempt is a general donation.
// @Tags         intake
// @Accept       json
// @Produce      json
// @Param        request  body  request.StartIntakeRequest  false  "request body"
// @Success      201  {object}  intake.View
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /intake [post]
func (h *IntakeHandler) HandleStartIntake(ctx *gin.Context) {
	var req request.StartIntakeRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}

	flow := intake.GeneralFlow()
	if req.CampaignID != nil {
		if _, err := h.campaigns.GetActive(ctx.Request.Context(), *req.CampaignID); err != nil {
			switch {
			case errors.Is(err, service.ErrCampaignNotFound):
				response.RenderErr(ctx, response.ErrNotFound("campaign", "ID", *req.CampaignID))
			case errors.Is(err, service.ErrCampaignInactive):
				response.RenderErr(ctx, response.ErrConflict(service.ErrCampaignInactive))
			default:
				err = fmt.Errorf("v1.HandleStartIntake -> h.campaigns.GetActive -> %w", err)
				response.RenderErr(ctx, response.ErrInternalServerError(err))
			}
			return
		}
		flow = intake.CampaignFlow(*req.CampaignID)
	}

	ctrl := intake.NewController(flow, h.ledger, h.gateway, h.timeout)
	id := h.sessions.Create(ctrl)

	view := intake.NewView(ctrl.State())
	view.SessionID = id.String()
	ctx.JSON(http.StatusCreated, view)
}

// HandleGetIntake godoc
// @Summary      Current state of a donation attempt
// @Tags         intake
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  intake.View
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /intake/{sessionID} [get]
func (h *IntakeHandler) HandleGetIntake(ctx *gin.Context) {
	id, ctrl, ok := h.session(ctx)
	if !ok {
		return
	}

	view := intake.NewView(ctrl.State())
	view.SessionID = id.String()
	ctx.JSON(http.StatusOK, view)
}

// HandleIntakeAction godoc
// @Summary      Apply a donor action
// @Description  A submit blocks until the ledger answers. Actions the current step does not allow return 409.
// @Tags         intake
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string                       true  "Session ID"
// @Param        request    body  request.IntakeActionRequest  true  "request body"
// @Success      200  {object}  intake.View
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /intake/{sessionID}/actions [post]
func (h *IntakeHandler) HandleIntakeAction(ctx *gin.Context) {
	id, ctrl, ok := h.session(ctx)
	if !ok {
		return
	}

	var req request.IntakeActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	action, err := req.ToAction(middleware.IdentityFrom(ctx))
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := ctrl.Dispatch(ctx.Request.Context(), action)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrActionNotAllowed):
			response.RenderErr(ctx, response.ErrConflict(err))
		case errors.Is(err, intake.ErrUnknownPreset), errors.Is(err, intake.ErrUnknownMethod), errors.Is(err, intake.ErrUnknownField):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleIntakeAction -> ctrl.Dispatch -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	view := intake.NewView(result.State)
	view.SessionID = id.String()
	view.Redirect = result.Redirect
	ctx.JSON(http.StatusOK, view)
}

func (h *IntakeHandler) session(ctx *gin.Context) (uuid.UUID, *intake.Controller, bool) {
	raw := ctx.Param("sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid sessionID: %q", raw)))
		return uuid.Nil, nil, false
	}

	ctrl, err := h.sessions.Get(id)
	if err != nil {
		response.RenderErr(ctx, response.ErrNotFound("intake session", "ID", id))
		return uuid.Nil, nil, false
	}

	return id, ctrl, true
}
