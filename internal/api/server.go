package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/edudonor/donation-api/docs"
	v1 "github.com/edudonor/donation-api/internal/api/handler/v1"
	"github.com/edudonor/donation-api/internal/api/middleware"
	"github.com/edudonor/donation-api/internal/cache"
	"github.com/edudonor/donation-api/internal/config"
	"github.com/edudonor/donation-api/internal/intake"
	"github.com/edudonor/donation-api/internal/repository"
	"github.com/edudonor/donation-api/internal/repository/dao"
	"github.com/edudonor/donation-api/internal/service"
	"github.com/edudonor/donation-api/internal/storage"
)

const (
	basePath         = "/api/v1"
	minSweepInterval = time.Minute
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	stop context.CancelFunc
}

type handlers struct {
	auth     *v1.AuthHandler
	campaign *v1.CampaignHandler
	donation *v1.DonationHandler
	intake   *v1.IntakeHandler
	feed     *v1.FeedHandler
}

// NewServer wires every layer over db. Background workers (the feed hub and
// the intake session sweeper) run until Close is called.
func NewServer(conf *config.AppConfig, db *gorm.DB) (*Server, error) {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		Config: conf,
		Router: engine,
		stop:   stop,
	}

	s.MountMiddlewares()

	images, err := s.initImageStore(ctx)
	if err != nil {
		stop()
		return nil, err
	}

	h := s.initHandlers(ctx, db, images)
	s.MountHandlers(h, service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db))))

	return s, nil
}

// Close stops the background workers.
func (s *Server) Close() {
	s.stop()
}

// initImageStore returns a nil store when storage is disabled; campaign image
// uploads then answer 503.
func (s *Server) initImageStore(ctx context.Context) (service.ImageStore, error) {
	if !s.Config.Storage.Enabled {
		return nil, nil
	}

	store, err := storage.NewS3ImageStore(ctx, s.Config.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage.NewS3ImageStore -> %w", err)
	}

	return store, nil
}

func (s *Server) initHandlers(ctx context.Context, db *gorm.DB, images service.ImageStore) handlers {
	qc := cache.New(s.Config.Cache.TTL)

	feed := v1.NewFeedHandler(s.Config.API.AllowedCORSDomains)
	go feed.Run(ctx)

	sessions := intake.NewSessionStore(s.Config.Intake.SessionTTL)
	sessions.StartSweeper(ctx, sweepInterval(s.Config.Intake.SessionTTL))

	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	campaignRepo := repository.NewCampaignRepository(dao.NewCampaignDAO(db))
	donationRepo := repository.NewDonationRepository(dao.NewDonationDAO(db))

	authSvc := service.NewAuthService(userRepo, s.Config.API.IsAdminEmail)
	campaignSvc := service.NewCampaignService(campaignRepo, qc, images)
	ledger := service.NewLedgerService(donationRepo, qc, feed, s.Config.Ledger.ReceiptPrefix)
	gateway := service.NewSimulatedGateway(s.Config.Ledger.PaymentDelay)
	donationSvc := service.NewDonationService(donationRepo, ledger, gateway, qc, publicURL(s.Config.API.BaseURL))

	return handlers{
		auth:     v1.NewAuthHandler(s.Config.API, authSvc),
		campaign: v1.NewCampaignHandler(campaignSvc),
		donation: v1.NewDonationHandler(donationSvc, campaignSvc, s.Config.Ledger.SubmitTimeout),
		intake:   v1.NewIntakeHandler(sessions, campaignSvc, ledger, gateway, s.Config.Ledger.SubmitTimeout),
		feed:     feed,
	}
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
	// The websocket upgrade must not go through the gzip writer.
	s.Router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{basePath + "/feed"})))
}

func (s *Server) MountHandlers(h handlers, users middleware.UserLookup) {
	authenticator := middleware.NewAuthenticator(s.Config.API.JWTSigningKey, users)

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/signup", h.auth.HandleSignup)
		public.POST("/auth/login", h.auth.HandleLogin)
		public.GET("/campaigns", h.campaign.HandleListCampaigns)
		public.GET("/campaigns/:campaignID", h.campaign.HandleGetCampaign)
		public.GET("/feed", h.feed.HandleFeed)
	}

	intakes := s.Router.Group(basePath, authenticator.TryJWT())
	{
		intakes.POST("/intake", h.intake.HandleStartIntake)
		intakes.GET("/intake/:sessionID", h.intake.HandleGetIntake)
		intakes.POST("/intake/:sessionID/actions", h.intake.HandleIntakeAction)
	}

	authed := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		authed.GET("/auth/me", h.auth.HandleMe)
		authed.POST("/donations", h.donation.HandleDonate)
		authed.GET("/donations", h.donation.HandleDonationHistory)
		authed.GET("/donations/:receipt/receipt", h.donation.HandleDownloadReceipt)
		authed.GET("/donations/:receipt/qrcode", h.donation.HandleReceiptQRCode)
	}

	admin := s.Router.Group(basePath+"/admin", authenticator.VerifyJWT(), middleware.RequireAdmin())
	{
		admin.GET("/campaigns", h.campaign.HandleListAllCampaigns)
		admin.POST("/campaigns", h.campaign.HandleCreateCampaign)
		admin.PATCH("/campaigns/:campaignID", h.campaign.HandleUpdateCampaign)
		admin.DELETE("/campaigns/:campaignID", h.campaign.HandleDeleteCampaign)
		admin.POST("/campaigns/:campaignID/image", h.campaign.HandleUploadCampaignImage)
		admin.GET("/stats", h.campaign.HandleCampaignStats)
		admin.GET("/reconciliation", h.campaign.HandleReconciliation)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = hostOf(s.Config.API.BaseURL)
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "EduDonor API"
	docs.SwaggerInfo.Description = "Campaigns, donations and the donation intake flow."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl/2 < minSweepInterval {
		return minSweepInterval
	}
	return ttl / 2
}

// publicURL adds a scheme to a bare host such as "localhost:8080".
func publicURL(base string) string {
	if strings.Contains(base, "://") {
		return base
	}
	return "http://" + base
}

func hostOf(base string) string {
	if _, rest, found := strings.Cut(base, "://"); found {
		return strings.TrimRight(rest, "/")
	}
	return base
}
