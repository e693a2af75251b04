package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/collaborator"
	"github.com/noah-isme/together-agent-api/internal/config"
	"github.com/noah-isme/together-agent-api/internal/database"
	"github.com/noah-isme/together-agent-api/internal/handler"
	"github.com/noah-isme/together-agent-api/internal/harvester"
	"github.com/noah-isme/together-agent-api/internal/middleware"
	"github.com/noah-isme/together-agent-api/internal/notifier"
	"github.com/noah-isme/together-agent-api/internal/repository"
	"github.com/noah-isme/together-agent-api/internal/router"
	"github.com/noah-isme/together-agent-api/internal/service"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	platform, err := collaborator.NewClient(collaborator.Config{
		BaseURL:  cfg.CollaboratorBaseURL,
		APIToken: cfg.CollaboratorAPIToken,
		Timeout:  cfg.CollaboratorTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create collaborator client: %v", err)
	}

	// Planner availability is decided once at startup; without a key the
	// service runs on deterministic planning alone.
	var planner ai.Planner
	if cfg.OpenAIAPIKey != "" {
		openaiPlanner, err := ai.NewOpenAIPlanner(ai.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			MaxTokens:      cfg.PlannerMaxTokens,
			Temperature:    float32(cfg.PlannerTemperature),
			RequestTimeout: cfg.PlannerTimeout,
			Cooldown:       cfg.PlannerCooldown,
			Logger:         logger,
		})
		if err != nil {
			log.Fatalf("failed to create planner: %v", err)
		}
		planner = openaiPlanner
	} else {
		logger.Warn().Msg("openai api key not set, language-model planning disabled")
	}

	var auditNotifier service.AuditNotifier
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, audit outcomes stay local")
		} else {
			defer natsConn.Drain()
			auditNotifier = notifier.NewNATSAuditNotifier(natsConn, logger)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	eventRepo := repository.NewActivityEventRepository(db)
	queueRepo := repository.NewActionQueueRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	cursorRepo := repository.NewCursorRepository(db)

	activityService := service.NewActivityService(eventRepo, logger)
	workflowEngine := service.NewWorkflowEngine(planner, platform, logger)
	decisionService := service.NewDecisionService(eventRepo, queueRepo, workflowEngine, logger)
	executionService := service.NewExecutionService(queueRepo, auditRepo, platform, platform, platform, planner, auditNotifier, logger)
	suggestionService := service.NewSuggestionService(redisClient, planner, platform, service.SuggestionServiceConfig{
		CacheTTL:       cfg.SuggestionCacheTTL,
		SyncWait:       cfg.SuggestionSyncWait,
		RefreshTimeout: cfg.SuggestionRefreshBudget,
		MaxRefreshers:  cfg.SuggestionMaxRefreshers,
	}, logger)
	queueService := service.NewQueueService(queueRepo, feedbackRepo, suggestionService, logger)
	toneService := service.NewToneService(redisClient, planner, platform, collaborator.NewLexiconSentiment(), logger)

	activityHandler := handler.NewActivityHandler(activityService, validate, logger)
	decisionHandler := handler.NewDecisionHandler(decisionService, logger)
	actionHandler := handler.NewActionHandler(queueService, executionService, validate, logger)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService, logger)
	analyzeHandler := handler.NewAnalyzeHandler(toneService, validate, logger)
	maintenanceHandler := handler.NewMaintenanceHandler(activityService, cfg.ActivityRetention, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler:    activityHandler,
		DecisionHandler:    decisionHandler,
		ActionHandler:      actionHandler,
		SuggestionHandler:  suggestionHandler,
		AnalyzeHandler:     analyzeHandler,
		MaintenanceHandler: maintenanceHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	harvestCtx, stopHarvest := context.WithCancel(context.Background())
	runner := harvester.NewRunner([]harvester.Harvester{
		harvester.NewMessageHarvester(platform, activityService, cursorRepo),
		harvester.NewQuizHarvester(platform, activityService, cursorRepo),
		harvester.NewReflectionHarvester(platform, activityService, cfg.DailyMissThreshold),
		harvester.NewCalendarGapHarvester(platform, activityService, cursorRepo, cfg.CalendarCheckInterval),
	}, cfg.HarvestInterval, logger)
	go runner.Run(harvestCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopHarvest)
}

func waitForShutdown(app *fiber.App, stopHarvest context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopHarvest()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
