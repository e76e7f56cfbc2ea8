package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/config"
	"github.com/vocalbooth/api/internal/handler"
	"github.com/vocalbooth/api/internal/middleware"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/internal/structure"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp creates a Fiber app identical to main.go but with an unconfigured
// hosted-function provider, so provider-backed endpoints fail fast with a
// provider error instead of making network calls.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost; must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	// Provider client; no base URL or key, so every invoke fails with an
	// authentication error before touching the network.
	edgeClient := client.NewEdgeClient(&config.ProviderConfig{Timeout: 5})
	emailClient := client.NewEmailClient(edgeClient)
	analyzer := structure.NewAnalyzer(edgeClient)

	// Services
	jobStore := service.NewJobStore(redisClient)
	structureService := service.NewStructureService(analyzer)
	productionService := service.NewProductionService(jobStore, asynqClient)
	mixdownService := service.NewMixdownService(jobStore, asynqClient)
	playbackService := service.NewPlaybackService(emailClient)

	// Handlers
	structureHandler := handler.NewStructureHandler(structureService, validate)
	productionHandler := handler.NewProductionHandler(productionService, validate)
	mixdownHandler := handler.NewMixdownHandler(mixdownService, validate)
	playbackHandler := handler.NewPlaybackHandler(playbackService, validate)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret, 24)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"provider": false,
				"r2":       false,
				"auth":     true,
			},
		})
	})

	// API routes (authenticated)
	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	structureGroup := api.Group("/structure", rateLimiter.AnalyzeLimit(10000))
	structureGroup.Post("/analyze", structureHandler.Analyze)

	produce := api.Group("/produce")
	produce.Post("/start", rateLimiter.ProduceLimit(10000), productionHandler.Start)
	produce.Get("/status/:jobId", productionHandler.Status)
	produce.Get("/result/:jobId", productionHandler.Result)
	produce.Post("/abort/:jobId", productionHandler.Abort)

	mixdown := api.Group("/mixdown")
	mixdown.Post("/start", rateLimiter.MixdownLimit(10000), mixdownHandler.Start)
	mixdown.Get("/status/:jobId", mixdownHandler.Status)
	mixdown.Get("/result/:jobId", mixdownHandler.Result)

	playback := api.Group("/playback", rateLimiter.EmailLimit(10000))
	playback.Post("/email", playbackHandler.SendEmail)

	return &testApp{app: app}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	m := middleware.NewAuthMiddleware(testJWTSecret, 24)
	signed, err := m.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
