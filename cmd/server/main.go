// Package main runs the hospital management HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/medigrid-hms/backend/config"
	"github.com/medigrid-hms/backend/internal/auth"
	"github.com/medigrid-hms/backend/internal/birthregisters"
	"github.com/medigrid-hms/backend/internal/dashboard"
	"github.com/medigrid-hms/backend/internal/infection"
	"github.com/medigrid-hms/backend/internal/inquiries"
	"github.com/medigrid-hms/backend/internal/medicalfiles"
	"github.com/medigrid-hms/backend/internal/middleware"
	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/organizations"
	"github.com/medigrid-hms/backend/internal/pcpndt"
	"github.com/medigrid-hms/backend/internal/phoneauth"
	"github.com/medigrid-hms/backend/internal/refnum"
	"github.com/medigrid-hms/backend/pkg/database"
	"github.com/medigrid-hms/backend/pkg/queue"
	"github.com/medigrid-hms/backend/pkg/redis"
	"github.com/medigrid-hms/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	counter := refnum.NewCounter(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Phone auth
	otpStore := phoneauth.NewCodeStore(rdb.Client)
	smsSender := phoneauth.NewHTTPSMSSender(cfg.SMS)
	phoneHandler := phoneauth.NewHandler(authRepo, otpStore, smsSender, jwtService, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo)

	// Birth registers
	birthRepo := birthregisters.NewRepository(pool)
	birthHandler := birthregisters.NewHandler(birthRepo, counter, logger)

	// Infection surveillance
	infectionRepo := infection.NewRepository(pool)
	infectionHandler := infection.NewHandler(infectionRepo, logger)

	// Medical record files
	fileRepo := medicalfiles.NewRepository(pool)
	fileHandler := medicalfiles.NewHandler(fileRepo, logger)

	// PCPNDT forms
	pcpndtRepo := pcpndt.NewRepository(pool)
	pcpndtHandler := pcpndt.NewHandler(pcpndtRepo, logger)

	// Sales inquiries
	inquiryRepo := inquiries.NewRepository(pool)
	inquiryHandler := inquiries.NewHandler(inquiryRepo, counter, jobQueue, cfg.Email.SalesNotifyTo, logger)

	// Dashboard
	dashboardRepo := dashboard.NewRepository(pool)
	dashboardHandler := dashboard.NewHandler(dashboardRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/phone/request", phoneHandler.Request)
		authGroup.POST("/phone/verify", phoneHandler.Verify)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (platform admin only)
		api.GET("/users", middleware.RequireRole(string(models.RolePlatformAdmin)), authHandler.List)

		// Organizations
		api.GET("/organizations", orgHandler.ListMyOrganizations)
		api.POST("/organizations", orgHandler.CreateOrganization)
		api.POST("/organizations/join", orgHandler.JoinOrganization)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)

		// Tenant-scoped resources
		scoped := api.Group("")
		scoped.Use(middleware.Tenant(orgRepo))
		{
			scoped.GET("/dashboard", dashboardHandler.Get)

			scoped.GET("/birth-registers", birthHandler.List)
			scoped.POST("/birth-registers", birthHandler.Create)
			scoped.GET("/birth-registers/:id", birthHandler.GetByID)
			scoped.PATCH("/birth-registers/:id", birthHandler.Update)
			scoped.PATCH("/birth-registers/:id/vaccination", birthHandler.Vaccination)
			scoped.POST("/birth-registers/:id/certify", birthHandler.Certify)
			scoped.POST("/birth-registers/:id/register", birthHandler.Register)
			scoped.POST("/birth-registers/:id/issue", birthHandler.Issue)

			scoped.GET("/infection/cases", infectionHandler.ListCases)
			scoped.POST("/infection/cases", infectionHandler.CreateCase)
			scoped.GET("/infection/cases/:id", infectionHandler.GetCase)
			scoped.PATCH("/infection/cases/:id", infectionHandler.UpdateCase)
			scoped.POST("/infection/cases/:id/confirm", infectionHandler.Confirm)
			scoped.POST("/infection/cases/:id/monitor", infectionHandler.Monitor)
			scoped.POST("/infection/cases/:id/resolve", infectionHandler.Resolve)
			scoped.GET("/infection/audits", infectionHandler.ListAudits)
			scoped.POST("/infection/audits", infectionHandler.CreateAudit)

			scoped.GET("/medical-files", fileHandler.List)
			scoped.POST("/medical-files", fileHandler.Create)
			scoped.GET("/medical-files/:id", fileHandler.GetByID)
			scoped.PATCH("/medical-files/:id", fileHandler.Update)
			scoped.DELETE("/medical-files/:id", fileHandler.Delete)
			scoped.POST("/medical-files/:id/scanned", fileHandler.Scanned)
			scoped.POST("/medical-files/:id/indexed", fileHandler.Indexed)
			scoped.POST("/medical-files/:id/archive", fileHandler.Archive)

			scoped.GET("/pcpndt/forms", pcpndtHandler.List)
			scoped.POST("/pcpndt/forms", pcpndtHandler.Create)
			scoped.GET("/pcpndt/forms/:id", pcpndtHandler.GetByID)
			scoped.PATCH("/pcpndt/forms/:id", pcpndtHandler.Update)
			scoped.POST("/pcpndt/forms/:id/sign", pcpndtHandler.Sign)

			scoped.GET("/inquiries", inquiryHandler.List)
			scoped.POST("/inquiries", inquiryHandler.Create)
			scoped.GET("/inquiries/:id", inquiryHandler.GetByID)
			scoped.PATCH("/inquiries/:id", inquiryHandler.Update)
			scoped.DELETE("/inquiries/:id", inquiryHandler.Delete)
			scoped.POST("/inquiries/:id/contact", inquiryHandler.Contact)
			scoped.POST("/inquiries/:id/qualify", inquiryHandler.Qualify)
			scoped.POST("/inquiries/:id/proposal", inquiryHandler.Proposal)
			scoped.POST("/inquiries/:id/won", inquiryHandler.Won)
			scoped.POST("/inquiries/:id/lost", inquiryHandler.Lost)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
