package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/config"
	"github.com/gongmoalim/gongmo-backend/database"
	"github.com/gongmoalim/gongmo-backend/handlers"
	"github.com/gongmoalim/gongmo-backend/jobs"
	"github.com/gongmoalim/gongmo-backend/services"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	timeouts := config.DefaultSourceTimeouts()

	// Core services
	normalizer := services.NewDateNormalizer()
	deduplicator := services.NewScheduleDeduplicator()
	gradeModel := services.NewGradeModel()
	planner := services.NewMilestonePlanner(normalizer)
	aggregator := services.NewProfitAggregator()
	ledgerStore := services.NewPostgresLedgerStore(database.DB)

	// Collection sources
	scheduleConfig := services.NewDefaultScheduleScraperConfiguration()
	scheduleConfig.ScheduleURL = cfg.ScheduleURL
	scheduleConfig.HTTPRequestTimeout = timeouts.Schedule
	scheduleScraper := services.NewScheduleScraper(scheduleConfig)

	detailConfig := services.NewDefaultDetailScraperConfiguration()
	detailConfig.SearchURL = cfg.DetailURL
	detailConfig.HTTPRequestTimeout = timeouts.Detail
	detailScraper := services.NewDetailScraper(detailConfig)

	dartSource := services.NewDartSource(cfg.DartAPIKey, timeouts.Disclosure)

	// Grading oracle is optional; without a key every offering takes the
	// deterministic fallback grade.
	var oracle services.GradingOracle
	if geminiOracle, err := services.NewGeminiGradingOracle(
		context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, timeouts.Oracle,
	); err != nil {
		log.Printf("Grading oracle disabled: %v", err)
	} else {
		oracle = geminiOracle
	}

	// Calendar sink is optional the same way.
	var sink services.CalendarSink
	calendarSink := services.NewHTTPCalendarSink(cfg.CalendarEndpoint, cfg.CalendarID, 10*time.Second)
	if calendarSink.Configured() {
		sink = calendarSink
	} else {
		log.Println("Calendar sink disabled: endpoint or calendar id not configured")
	}

	pipeline := services.NewCollectionPipeline(services.PipelineDependencies{
		Schedule:          scheduleScraper,
		Fallback:          dartSource,
		Detail:            detailScraper,
		Disclosures:       dartSource,
		Oracle:            oracle,
		Sink:              sink,
		Deduplicator:      deduplicator,
		GradeModel:        gradeModel,
		Planner:           planner,
		RequestsPerSecond: cfg.CollectRateLimit(),
	})

	log.Println("Offering tracker services initialized:")
	log.Printf("  - Schedule scraper (%s, fallback: DART %v)", cfg.ScheduleURL, cfg.DartAPIKey != "")
	log.Printf("  - Detail scraper (%s)", cfg.DetailURL)
	log.Printf("  - Grading oracle enabled: %v (model: %s)", oracle != nil, cfg.GeminiModel)
	log.Printf("  - Calendar sink enabled: %v", sink != nil)
	log.Printf("  - Collection rate limit: %.2f req/s", cfg.CollectRateLimit())

	// Background jobs
	dailyJob := jobs.NewDailyCollectionJob(pipeline)
	reportJob := jobs.NewProfitReportJob(ledgerStore, aggregator)

	// Handlers
	offeringHandler := handlers.NewOfferingHandler(pipeline)
	profitHandler := handlers.NewProfitHandler(ledgerStore, aggregator)
	adminHandler := handlers.NewAdminHandler(pipeline)

	// Start background jobs
	go func() {
		// Run immediately on startup
		go dailyJob.Run()

		dailyTicker := time.NewTicker(8 * time.Hour)
		reportTicker := time.NewTicker(24 * time.Hour)

		for {
			select {
			case <-dailyTicker.C:
				dailyJob.Run()
			case <-reportTicker.C:
				reportJob.Run()
			}
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"sources":   pipeline.SourceMetrics(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Offering Routes
	api.Get("/offerings", offeringHandler.GetOfferings)
	api.Get("/offerings/analyses", offeringHandler.GetAnalyses)
	api.Get("/offerings/tomorrow", offeringHandler.GetTomorrowSubscriptions)
	api.Get("/offerings/grades", offeringHandler.GetGradeTable)
	api.Get("/offerings/:name", offeringHandler.GetAnalysisByName)

	// Profit Routes
	api.Get("/profit/summary", profitHandler.GetProfitSummary)
	api.Get("/profit/report", profitHandler.GetProfitReport)
	api.Post("/profit/trades", profitHandler.CreateTrade)

	// Admin Routes
	admin := api.Group("/admin")
	admin.Post("/collect", adminHandler.TriggerCollection)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
