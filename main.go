package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taxprep-referral-system/handlers"
	"taxprep-referral-system/middleware"
	"taxprep-referral-system/models"
	"taxprep-referral-system/services"
	"taxprep-referral-system/utils"
	"taxprep-referral-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // 100MB, bulk document archives
	})

	// Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if os.Getenv("R2_ACCESS_KEY_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("R2 not configured, documents will be stored on local disk")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.ReferrerProfile{},
		&models.Lead{},
		&models.SubmissionLog{},
		&models.Commission{},
		&models.PayoutRequest{},
		&models.DocumentFolder{},
		&models.Document{},
		&models.Appointment{},
		&models.EmailCampaign{},
		&models.CampaignRecipient{},
		&models.LandingPage{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier services.Notifier
	if os.Getenv("SMTP_HOST") != "" {
		notifier = services.NewEmailNotifier()
	} else {
		log.Println("SMTP not configured, notifications are logged only")
		notifier = services.NoopNotifier{}
	}

	attributionService := services.NewAttributionService(db)
	fraudService := services.NewFraudService(db)
	leadService := services.NewLeadService(db, attributionService, fraudService)
	referrerService := services.NewReferrerService(db)
	commissionService := services.NewCommissionService(db)
	payoutService := services.NewPayoutService(db, notifier)
	documentService := services.NewDocumentService(db)
	appointmentService := services.NewAppointmentService(db, notifier)
	campaignService := services.NewCampaignService(db, notifier)

	var contentService *services.ContentService
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		generator, err := services.NewGeminiGenerator(ctx, geminiKey)
		if err != nil {
			log.Fatal("failed to initialize content generator:", err)
		}
		contentService = services.NewContentService(db, generator)
		go workers.RunContentPipeline(ctx, contentService, 30*time.Second)
		log.Println("Landing-page content pipeline running (every 30s)")
	} else {
		log.Println("GEMINI_API_KEY not set, landing-page generation disabled")
		contentService = services.NewContentService(db, nil)
	}

	if os.Getenv("CRM_SERVICE_URL") != "" {
		crmSyncClient := workers.NewCRMSyncClient(db)
		go workers.PollLeads(ctx, crmSyncClient, 60*time.Second)
		log.Println("CRM lead sync running (every 60s)")
	} else {
		log.Println("CRM_SERVICE_URL not set, CRM sync disabled")
	}

	services.StartScheduler(campaignService, appointmentService)

	handlers.SetupLeadRoutes(app, leadService)
	handlers.SetupReferralRoutes(app, referrerService, commissionService, payoutService)
	handlers.SetupOperationsRoutes(app, documentService, appointmentService, campaignService, contentService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Server running on http://localhost:5300")
	log.Println("GatewayAuthMiddleware enforced globally, all requests must come from Gateway")
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
