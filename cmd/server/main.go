package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vocalbooth/api/internal/audio"
	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/config"
	"github.com/vocalbooth/api/internal/handler"
	"github.com/vocalbooth/api/internal/middleware"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/internal/structure"
	"github.com/vocalbooth/api/internal/worker"
	ws "github.com/vocalbooth/api/internal/websocket"
)

// @title          VocalBooth API
// @version        1.0
// @description    Backend API for VocalBooth: in-store recording booth audio production.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	edgeClient := client.NewEdgeClient(&cfg.Provider)
	jobClient := client.NewJobClient(edgeClient)
	emailClient := client.NewEmailClient(edgeClient)
	analyzer := structure.NewAnalyzer(edgeClient)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured, mixdown uploads will fail")
	}

	// Initialize services
	jobStore := service.NewJobStore(redisClient)
	structureService := service.NewStructureService(analyzer)
	productionService := service.NewProductionService(jobStore, asynqClient)
	mixdownService := service.NewMixdownService(jobStore, asynqClient)
	playbackService := service.NewPlaybackService(emailClient)

	// Initialize handlers
	structureHandler := handler.NewStructureHandler(structureService, validate)
	productionHandler := handler.NewProductionHandler(productionService, validate)
	mixdownHandler := handler.NewMixdownHandler(mixdownService, validate)
	playbackHandler := handler.NewPlaybackHandler(playbackService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"provider": edgeClient.IsConfigured(),
				"r2":       r2Client != nil,
				"auth":     cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Structure routes
	structureGroup := api.Group("/structure", rateLimiter.AnalyzeLimit(cfg.RateLimit.AnalyzePerMin))
	structureGroup.Post("/analyze", structureHandler.Analyze)

	// Produce routes
	produce := api.Group("/produce")
	produce.Post("/start", rateLimiter.ProduceLimit(cfg.RateLimit.ProducePerHour), productionHandler.Start)
	produce.Get("/status/:jobId", productionHandler.Status)
	produce.Get("/result/:jobId", productionHandler.Result)
	produce.Post("/abort/:jobId", productionHandler.Abort)

	// Mixdown routes
	mixdown := api.Group("/mixdown")
	mixdown.Post("/start", rateLimiter.MixdownLimit(cfg.RateLimit.MixdownPerHour), mixdownHandler.Start)
	mixdown.Get("/status/:jobId", mixdownHandler.Status)
	mixdown.Get("/result/:jobId", mixdownHandler.Result)

	// Playback routes
	playback := api.Group("/playback", rateLimiter.EmailLimit(cfg.RateLimit.EmailPerHour))
	playback.Post("/email", playbackHandler.SendEmail)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, jobClient, r2Client, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobStore *service.JobStore,
	jobClient *client.JobClient,
	r2Client *client.R2Client,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"produce": 6,
				"mixdown": 4,
			},
			LogLevel: asynqLogLevel,
		},
	)

	interval := time.Duration(cfg.Poll.IntervalSeconds) * time.Second
	mixer := audio.NewOfflineMixer(audio.NewHTTPFetcher(2*time.Minute), audio.WAVDecoder{})

	// r2Client may be nil when storage is not configured; mixdown jobs will
	// fail at upload with a clear error rather than at startup.
	var storage client.StorageClient
	if r2Client != nil {
		storage = r2Client
	}

	produceWorker := worker.NewProduceWorker(jobStore, jobClient, hub, interval, cfg.Poll.MaxAttempts)
	mixdownWorker := worker.NewMixdownWorker(jobStore, mixer, storage, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeProduce, produceWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeMixdown, mixdownWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
