package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	websocket2 "github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/aiqalab/redteam-console/config"
	"github.com/aiqalab/redteam-console/handlers"
	"github.com/aiqalab/redteam-console/middleware"
	"github.com/aiqalab/redteam-console/services"
	"github.com/aiqalab/redteam-console/store"
	"github.com/aiqalab/redteam-console/utils"
	"github.com/aiqalab/redteam-console/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if errors := cfg.Validate(); len(errors) > 0 {
		log.Fatal("Configuration validation failed:", errors)
	}

	// Initialize logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := utils.GetLogger()
	logger.Info("Starting Red Team Console", map[string]interface{}{
		"version":     "1.0.0",
		"environment": cfg.Environment,
		"port":        cfg.Port,
	})

	// Open the database
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer st.Close()

	// Initialize WebSocket hub
	websocket.InitializeHub()

	// Wire services
	notifier := services.NewNotifier(websocket.GlobalHub)
	replyService := services.NewReplyService(cfg, logger)
	systemPrompts := services.NewSystemPromptStore(config.DefaultSystemPrompt)
	coordinator := services.NewGlobalCoordinator(cfg, replyService, st, websocket.GlobalHub, notifier, systemPrompts.Get, logger)
	clientService := services.NewClientService(st, coordinator, logger)
	testCaseService := services.NewTestCaseService(st, logger)
	documentService := services.NewDocumentService(st, logger)
	statsService := services.NewStatsService(st, coordinator, replyService, logger)

	if err := clientService.LoadAll(); err != nil {
		log.Fatal("Failed to load clients:", err)
	}

	// Create Fiber app with configuration
	app := createFiberApp(cfg, logger)

	// Setup middleware
	setupMiddleware(app, cfg)

	// Setup routes
	setupRoutes(app, cfg, logger, &handlerSet{
		clients:       handlers.NewClientHandler(clientService),
		run:           handlers.NewRunHandler(coordinator),
		testCases:     handlers.NewTestCaseHandler(testCaseService),
		chat:          handlers.NewChatHandler(replyService, st, systemPrompts.Get),
		conversations: handlers.NewConversationHandler(st),
		documents:     handlers.NewDocumentHandler(documentService),
		systemPrompt:  handlers.NewSystemPromptHandler(systemPrompts),
		stats:         handlers.NewStatsHandler(statsService),
		notifications: handlers.NewNotificationHandler(notifier),
	})

	// Start server with graceful shutdown; running schedulers are stopped
	// before the listener closes
	startServerWithGracefulShutdown(app, cfg, logger, coordinator)
}

// handlerSet bundles the route handlers for wiring
type handlerSet struct {
	clients       *handlers.ClientHandler
	run           *handlers.RunHandler
	testCases     *handlers.TestCaseHandler
	chat          *handlers.ChatHandler
	conversations *handlers.ConversationHandler
	documents     *handlers.DocumentHandler
	systemPrompt  *handlers.SystemPromptHandler
	stats         *handlers.StatsHandler
	notifications *handlers.NotificationHandler
}

// createFiberApp creates and configures the Fiber application
func createFiberApp(cfg *config.Config, logger *utils.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "Red Team Console v1.0.0",
		ServerHeader: "Red-Team-Console",
		ErrorHandler: createErrorHandler(logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})
}

// setupMiddleware configures all middleware for the application
func setupMiddleware(app *fiber.App, cfg *config.Config) {
	// Recovery middleware (should be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))

	// Correlation ID middleware
	app.Use(middleware.CorrelationID())

	// CORS middleware
	corsOrigins := []string{cfg.FrontendURL}
	if cfg.IsDevelopment() {
		corsOrigins = append(corsOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}
	app.Use(middleware.CORSWithOrigins(corsOrigins))

	// Request logging middleware
	app.Use(middleware.RequestLogging())
}

// setupRoutes configures all routes for the application
func setupRoutes(app *fiber.App, cfg *config.Config, logger *utils.Logger, h *handlerSet) {
	// Health check endpoint
	app.Get("/health", healthCheckHandler(cfg))

	// WebSocket endpoint
	app.Use("/ws", websocket.WebSocketUpgrade)
	app.Get("/ws", websocket2.New(websocket.WebSocketHandler))

	// WebSocket stats endpoint
	app.Get("/ws/stats", func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, "WebSocket statistics", websocket.GetWebSocketStats())
	})

	api := app.Group("/api")

	// Client management
	clients := api.Group("/clients")
	clients.Get("/", h.clients.ListClients)
	clients.Post("/", h.clients.CreateClient)
	clients.Get("/:id", h.clients.GetClient)
	clients.Put("/:id", h.clients.UpdateClient)
	clients.Delete("/:id", h.clients.DeleteClient)

	// Per-client run control
	clients.Post("/:id/advance", h.run.AdvanceClient)
	clients.Post("/:id/start", h.run.StartClient)
	clients.Post("/:id/stop", h.run.StopClient)
	clients.Post("/:id/reset", h.run.ResetClient)
	clients.Get("/:id/messages", h.run.GetMessages)

	// Global run control
	run := api.Group("/run")
	run.Post("/start", h.run.StartAll)
	run.Post("/stop", h.run.StopAll)
	run.Post("/clear", h.run.ClearAll)
	run.Get("/status", h.run.Status)

	// Test-case library
	testcases := api.Group("/testcases")
	testcases.Get("/", h.testCases.ListTestCases)
	testcases.Get("/categories", h.testCases.GetCategories)
	testcases.Post("/import", h.testCases.ImportTestCases)
	testcases.Get("/template", h.testCases.DownloadTemplate)
	testcases.Get("/export", h.testCases.ExportTestCases)

	// Single chat
	api.Post("/chat/send", h.chat.SendMessage)

	// Stored conversations
	api.Get("/conversations", h.conversations.ListConversations)

	// Knowledge documents
	documents := api.Group("/documents")
	documents.Get("/", h.documents.ListDocuments)
	documents.Post("/", h.documents.CreateDocument)
	documents.Delete("/:id", h.documents.DeleteDocument)

	// System prompt
	api.Get("/system-prompt", h.systemPrompt.GetSystemPrompt)
	api.Put("/system-prompt", h.systemPrompt.UpdateSystemPrompt)

	// Dashboard stats
	api.Get("/stats", h.stats.GetStats)

	// Notifications backlog
	api.Get("/notifications", h.notifications.ListNotifications)

	logger.Info("Routes configured successfully", map[string]interface{}{
		"health_endpoint":    "/health",
		"api_base":           "/api",
		"websocket_endpoint": "/ws",
	})
}

// healthCheckHandler creates the health check endpoint handler
func healthCheckHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":      "healthy",
			"message":     "Red Team Console is running",
			"version":     "1.0.0",
			"environment": cfg.Environment,
			"timestamp":   time.Now().UTC(),
			"uptime":      time.Since(startTime).String(),
			"checks": fiber.Map{
				"server": "ok",
				"config": "ok",
			},
		}

		return utils.SuccessResponse(c, "Health check passed", health)
	}
}

// createErrorHandler creates a custom error handler for Fiber
func createErrorHandler(logger *utils.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		traceID := utils.GetTraceID(c)
		logger.WithTraceID(traceID).WithSource("error_handler").Error(
			"Request error", err, map[string]interface{}{
				"method":     c.Method(),
				"path":       c.Path(),
				"status":     code,
				"ip":         c.IP(),
				"user_agent": c.Get("User-Agent"),
			})

		return utils.ErrorResponse(c, code, "REQUEST_ERROR", message, nil)
	}
}

// startServerWithGracefulShutdown starts the server with graceful shutdown handling
func startServerWithGracefulShutdown(app *fiber.App, cfg *config.Config, logger *utils.Logger, coordinator *services.GlobalCoordinator) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		address := cfg.GetServerAddress()
		logger.Info("Server starting", map[string]interface{}{
			"address":     address,
			"environment": cfg.Environment,
		})

		fmt.Printf("Server starting on %s\n", address)
		fmt.Printf("Health check available at: http://localhost:%s/health\n", cfg.Port)

		if err := app.Listen(address); err != nil {
			logger.Error("Server failed to start", err, map[string]interface{}{
				"address": address,
			})
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-quit
	logger.Info("Shutdown signal received, starting graceful shutdown", nil)

	// Stop schedulers first so in-flight exchanges can persist before the
	// database closes
	coordinator.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", err, nil)
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server shutdown completed successfully", nil)
}

// Global variable to track server start time for uptime calculation
var startTime = time.Now()
