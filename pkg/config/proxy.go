package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/api"
	"github.com/Egham-7/bedtime-stories/internal/config"
	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/auth"
	"github.com/Egham-7/bedtime-stories/internal/services/billing"
	"github.com/Egham-7/bedtime-stories/internal/services/cache"
	"github.com/Egham-7/bedtime-stories/internal/services/database"
	"github.com/Egham-7/bedtime-stories/internal/services/fallback"
	"github.com/Egham-7/bedtime-stories/internal/services/imagegen"
	"github.com/Egham-7/bedtime-stories/internal/services/leads"
	"github.com/Egham-7/bedtime-stories/internal/services/library"
	"github.com/Egham-7/bedtime-stories/internal/services/metrics"
	"github.com/Egham-7/bedtime-stories/internal/services/middleware"
	"github.com/Egham-7/bedtime-stories/internal/services/parental"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/speech"
	"github.com/Egham-7/bedtime-stories/internal/services/story"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"
	"github.com/Egham-7/bedtime-stories/pkg/builder"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/redis/go-redis/v9"
)

// DefaultSQLitePath is used when no database section is configured
const DefaultSQLitePath = "bedtime.db"

// Request deadlines when the builder sets none. Clients rendering scene art and
// narration can ask for more with X-Request-Timeout.
const (
	DefaultRequestTimeout = 30 * time.Second
	MaxRequestTimeout     = 2 * time.Minute
)

// Proxy represents a bedtime stories server instance.
type Proxy struct {
	config   *config.Config
	app      *fiber.App
	redis    *redis.Client
	db       *database.DB
	builder  *builder.Builder
	services *proxyServices
	stop     context.CancelFunc
}

type proxyServices struct {
	recorder      *metrics.Recorder
	memo          *cache.Memo
	stories       *story.Service
	images        *imagegen.Renderer
	speech        *speech.Service
	library       *library.Store
	parental      *parental.Store
	leads         *leads.Store
	subscriptions *billing.SubscriptionStore
	stripe        *billing.StripeService
}

type proxyInfrastructure struct {
	redis *redis.Client
	db    *database.DB
}

// NewProxy creates a new Proxy instance with the given configuration.
// The cfg parameter is required and must not be nil.
// For full middleware control, use NewProxyWithBuilder.
func NewProxy(cfg *config.Config) *Proxy {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() or the builder to create config")
	}

	return &Proxy{config: cfg}
}

// NewProxyWithBuilder creates a new Proxy instance with a configuration builder.
// This allows full control over middlewares, rate limits and timeouts.
func NewProxyWithBuilder(b *builder.Builder) *Proxy {
	return &Proxy{
		config:  b.Build(),
		builder: b,
	}
}

// Run starts the server and blocks until shutdown.
func (p *Proxy) Run() error {
	if err := p.setup(); err != nil {
		p.close()
		return err
	}
	defer p.close()

	port := p.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	fmt.Printf("Bedtime stories API starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", p.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := p.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		fiberlog.Info("Context cancelled, starting shutdown...")
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- p.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

// setup validates the config, connects infrastructure and registers every route
func (p *Proxy) setup() error {
	if err := p.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(p.config)

	p.app = createFiberApp(p.config)

	infra, err := initializeInfrastructure(p.config)
	if err != nil {
		return err
	}
	p.redis = infra.redis
	p.db = infra.db

	services, err := initializeServices(p.config, infra)
	if err != nil {
		return err
	}
	p.services = services

	sweepCtx, stop := context.WithCancel(context.Background())
	p.stop = stop
	services.memo.StartSweeper(sweepCtx, p.config.Cache.SweepInterval)

	setupMiddleware(p.app, p.config, p)
	setupRoutes(p.app, p.config, infra, services)

	p.app.Get("/", welcomeHandler())
	return nil
}

func (p *Proxy) close() {
	if p.stop != nil {
		p.stop()
	}
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			fiberlog.Errorf("Failed to close Redis client: %v", err)
		}
	}
	if err := p.db.Close(); err != nil {
		fiberlog.Errorf("Failed to close database connection: %v", err)
	}
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:              "BedtimeStories v1.0",
		EnablePrintRoutes:    !isProd,
		ReadTimeout:          2 * time.Minute,
		WriteTimeout:         2 * time.Minute,
		IdleTimeout:          5 * time.Minute,
		ReadBufferSize:       8192,
		WriteBufferSize:      8192,
		BodyLimit:            1 * 1024 * 1024,
		CompressedFileSuffix: ".gz",
		Prefork:              false,
		CaseSensitive:        true,
		StrictRouting:        false,
		Network:              "tcp",
		ServerHeader:         "BedtimeStories",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config, p *Proxy) {
	isProd := cfg.IsProduction()

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    request.HeaderName,
		Generator: request.GenerateRequestID,
	}))

	// Rate limiter (use builder config if available, otherwise use defaults)
	if p.builder != nil && p.builder.GetRateLimitConfig() != nil {
		rlCfg := p.builder.GetRateLimitConfig()
		keyFunc := rlCfg.KeyFunc
		if keyFunc == nil {
			keyFunc = func(c *fiber.Ctx) string {
				return c.IP()
			}
		}
		app.Use(limiter.New(limiter.Config{
			Max:               rlCfg.Max,
			Expiration:        rlCfg.Expiration,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      keyFunc,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, fmt.Sprintf("%d requests per %v", rlCfg.Max, rlCfg.Expiration))
			},
		}))
	} else {
		app.Use(limiter.New(limiter.Config{
			Max:               300,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/webhooks") || c.Path() == "/health"
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "300 requests per minute")
			},
		}))
	}

	// Request timeout middleware (use builder config if available)
	if p.builder != nil && p.builder.GetTimeoutConfig() != nil {
		timeoutDuration := p.builder.GetTimeoutConfig().Timeout
		app.Use(func(c *fiber.Ctx) error {
			handler := func(c *fiber.Ctx) error {
				return c.Next()
			}
			return timeout.NewWithContext(handler, timeoutDuration)(c)
		})
	} else {
		app.Use(requestTimeout())
	}

	// Compression
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Logging
	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	// CORS
	allAllowedHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "User-Agent",
		request.HeaderName, auth.UserIDHeader, "X-Request-Timeout",
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     strings.Join(allAllowedHeaders, ", "),
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: cfg.Server.AllowedOrigins != "*",
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, X-Cache-State",
	}))

	// Custom middlewares from builder
	if p.builder != nil {
		for _, middleware := range p.builder.GetMiddlewares() {
			app.Use(middleware)
		}
	}

	// Caller identity for the user-state routes
	var verifier auth.TokenVerifier
	if cfg.HasClerk() {
		verifier = auth.NewClerkAuthProvider(cfg.Auth.ClerkConfig.SecretKey)
		fiberlog.Info("Clerk bearer token verification enabled")
	} else {
		fiberlog.Info("Clerk not configured - trusting X-User-ID header")
	}
	app.Use(middleware.NewAuthMiddleware(verifier, nil).Identify())

	// Profiler (dev only)
	if !isProd {
		app.Use(pprof.New())
	}
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info", "":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	case "panic":
		fiberlog.SetLevel(fiberlog.LevelPanic)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	redisURL := cfg.Cache.RedisURL
	if redisURL == "" {
		fiberlog.Info("Redis not configured - circuit breakers are per process and the memo cache stays in memory")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	fiberlog.Debugf("Redis client configuration: PoolSize=%d, MinIdle=%d, MaxRetries=%d",
		opt.PoolSize, opt.MinIdleConns, opt.MaxRetries)

	client := redis.NewClient(opt)

	return testRedisConnectionWithRetry(client)
}

func testRedisConnectionWithRetry(client *redis.Client) (*redis.Client, error) {
	const maxAttempts = 3
	const baseDelay = 1 * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()

		if err == nil {
			fiberlog.Infof("Redis connection established successfully (attempt %d/%d)", attempt, maxAttempts)
			stats := client.PoolStats()
			fiberlog.Debugf("Redis pool initialized: Hits=%d, Misses=%d, Timeouts=%d, TotalConns=%d, IdleConns=%d",
				stats.Hits, stats.Misses, stats.Timeouts, stats.TotalConns, stats.IdleConns)
			return client, nil
		}

		fiberlog.Warnf("Redis connection failed (attempt %d/%d): %v", attempt, maxAttempts, err)

		if attempt < maxAttempts {
			delay := time.Duration(attempt) * baseDelay
			fiberlog.Infof("Retrying Redis connection in %v...", delay)
			time.Sleep(delay)
		}
	}

	if err := client.Close(); err != nil {
		fiberlog.Errorf("Failed to close Redis client after connection failures: %v", err)
	}

	return nil, fmt.Errorf("failed to connect to Redis after %d attempts", maxAttempts)
}

func initializeInfrastructure(cfg *config.Config) (*proxyInfrastructure, error) {
	infra := &proxyInfrastructure{}

	redisClient, err := createRedisClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}
	infra.redis = redisClient

	dbConfig := models.DatabaseConfig{Type: models.SQLite, FilePath: DefaultSQLitePath}
	if cfg.Database != nil {
		dbConfig = *cfg.Database
	} else {
		fiberlog.Infof("Database not configured - using SQLite at %s", DefaultSQLitePath)
	}
	if dbConfig.LogLevel == "" {
		dbConfig.LogLevel = cfg.GetNormalizedLogLevel()
	}

	db, err := database.New(dbConfig)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	infra.db = db
	fiberlog.Infof("Database (%s) initialized and migrated", db.DriverName())

	return infra, nil
}

func initializeServices(cfg *config.Config, infra *proxyInfrastructure) (*proxyServices, error) {
	recorder := metrics.NewRecorder(nil)

	memo, err := cache.NewFromConfig(cfg.Cache, infra.redis, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create memo cache: %w", err)
	}

	generators := textgen.NewGenerators(cfg.Providers.Text)
	if len(generators) == 0 {
		fiberlog.Warn("No text provider configured - story endpoints will return not_configured")
	}

	images := imagegen.New(cfg.Providers.Image, recorder)

	narrator, err := speech.NewFromConfig(cfg.Providers.Speech, recorder)
	if err != nil {
		fiberlog.Warnf("Speech synthesis disabled: %v", err)
	}

	stories := story.NewService(story.Dependencies{
		Memo:       memo,
		Fallback:   fallback.NewFallbackService(cfg.Fallback, infra.redis, recorder),
		Generators: generators,
		Images:     images,
		Speech:     narrator,
		Retry:      cfg.Retry,
		Recorder:   recorder,
	})

	subscriptions := billing.NewSubscriptionStore(infra.db.DB)

	return &proxyServices{
		recorder:      recorder,
		memo:          memo,
		stories:       stories,
		images:        images,
		speech:        narrator,
		library:       library.NewStore(infra.db.DB),
		parental:      parental.NewStore(infra.db.DB),
		leads:         leads.NewStore(infra.db.DB),
		subscriptions: subscriptions,
		stripe:        billing.NewStripeService(cfg.Billing, subscriptions, recorder),
	}, nil
}

func setupRoutes(app *fiber.App, cfg *config.Config, infra *proxyInfrastructure, services *proxyServices) {
	healthHandler := api.NewHealthHandler(cfg, infra.redis, infra.db)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(services.recorder.Handler()))

	if cfg.Auth.ClerkConfig != nil && cfg.Auth.ClerkConfig.WebhookSecret != "" {
		clerkWebhookHandler := api.NewClerkWebhookHandler(
			cfg.Auth.ClerkConfig.WebhookSecret,
			services.library,
			services.parental,
			services.subscriptions,
		)
		app.Post("/webhooks/clerk", clerkWebhookHandler.HandleWebhook)
	}

	apiGroup := app.Group("/api")

	storyHandler := api.NewStoryHandler(services.stories)
	apiGroup.Post("/story", storyHandler.Story)
	apiGroup.Post("/stories/generate", storyHandler.Generate)

	mediaHandler := api.NewMediaHandler(services.images, services.speech)
	apiGroup.Post("/art", mediaHandler.Art)
	apiGroup.Post("/tts", mediaHandler.TTS)
	apiGroup.Post("/tts/audio", mediaHandler.TTSAudio)

	apiGroup.Get("/catalog", api.CatalogHandler)
	apiGroup.Get("/catalog/themes", api.ThemesHandler)

	billingHandler := api.NewBillingHandler(services.stripe, services.subscriptions)
	apiGroup.Post("/billing/checkout", billingHandler.CreateCheckoutSession)
	apiGroup.Post("/billing/webhook", billingHandler.HandleWebhook)
	apiGroup.Post("/stripe/webhook", billingHandler.HandleWebhook)
	apiGroup.Get("/entitlements", billingHandler.Entitlements)

	libraryHandler := api.NewLibraryHandler(services.library)
	libraryGroup := apiGroup.Group("/library")
	libraryGroup.Get("/", libraryHandler.List)
	libraryGroup.Put("/:slug", libraryHandler.Upsert)
	libraryGroup.Patch("/:slug/progress", libraryHandler.UpdateProgress)
	libraryGroup.Patch("/:slug/favorite", libraryHandler.SetFavorite)
	libraryGroup.Delete("/:slug", libraryHandler.Delete)

	parentalHandler := api.NewParentalHandler(services.parental)
	parentalGroup := apiGroup.Group("/parental")
	parentalGroup.Get("/", parentalHandler.Get)
	parentalGroup.Put("/", parentalHandler.Save)
	parentalGroup.Post("/pin", parentalHandler.SetPIN)
	parentalGroup.Post("/pin/verify", parentalHandler.VerifyPIN)
	parentalGroup.Get("/policy", parentalHandler.Policy)

	notifyHandler := api.NewNotifyHandler(services.leads)
	apiGroup.Post("/notify", notifyHandler.Notify)
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to the Bedtime Stories API!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"story":    "/api/story",
				"generate": "/api/stories/generate",
				"art":      "/api/art",
				"tts":      "/api/tts",
				"catalog":  "/api/catalog",
				"health":   "/health",
			},
		})
	}
}

// requestTimeout puts a deadline on the user context, honoring X-Request-Timeout up to MaxRequestTimeout
func requestTimeout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		timeout := DefaultRequestTimeout
		if customTimeout := c.Get("X-Request-Timeout"); customTimeout != "" {
			if d, err := time.ParseDuration(customTimeout); err == nil && d > 0 {
				timeout = min(d, MaxRequestTimeout)
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	}
}
