package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"roastblur/internal/gemini"
)

func main() {
	_ = godotenv.Load()
	initLogger(false, "")

	cfg, err := loadConfig()
	if err != nil {
		logFatal("Invalid configuration: %v", err)
	}
	initLogger(cfg.isProduction(), cfg.LogFile)
	defer func() { _ = logger.Sync() }()
	logInfo("Starting Roastblur in %s mode", cfg.envName())

	shutdownTracer := initTracer(context.Background(), cfg)

	if cfg.credential() == "" {
		logWarn("No Gemini API key configured; generation requests will fail until GEMINI_API_KEY or API_KEY is set")
	}
	client := gemini.NewClient(cfg.credential(),
		gemini.WithBaseURL(cfg.GeminiBaseURL),
		gemini.WithTextModel(cfg.TextModel),
		gemini.WithImageModel(cfg.ImageModel),
		gemini.WithHTTPClient(&http.Client{Timeout: cfg.GeminiTimeout}),
		gemini.WithLogger(logger.Named("gemini")),
	)

	app := newApp(cfg, client)

	if err := cleanupOldSessions(cfg.SessionDir, cfg.SessionTimeout); err != nil {
		logWarn("Initial session cleanup failed: %v", err)
	}
	stopCleanup := make(chan struct{})
	app.startSessionCleanup(max(cfg.SessionTimeout/4, time.Minute), stopCleanup)

	router := setupRouter(app)
	startServer(app, router)

	close(stopCleanup)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(ctx); err != nil {
		logWarn("Tracer shutdown: %v", err)
	}
}

// setupRouter builds the gin engine with middleware, templates and routes.
func setupRouter(app *App) *gin.Engine {
	router := gin.Default()

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(requestIDMiddleware(), app.securityHeadersMiddleware(), app.cacheHeadersMiddleware())

	// Funcs must be registered before the templates are parsed.
	router.SetFuncMap(templateFuncs())
	if app.IsProduction && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		router.LoadHTMLGlob("dist/templates/*.html")
		router.Static("/static", "./dist/static")
	} else {
		logInfo("Serving development assets from source directories")
		router.LoadHTMLGlob("templates/*.html")
		router.Static("/static", "./static")
	}

	limit := app.rateLimitMiddleware()

	router.GET(RouteHome, app.homeHandler)
	router.POST(RouteSearch, limit, app.searchHandler)
	router.POST(RouteAnswer, limit, app.answerHandler)
	router.POST(RoutePlayAgain, limit, app.playAgainHandler)
	router.GET(RouteGameState, app.gameStateHandler)
	router.GET(RouteWordCloud, app.wordCloudHandler)
	router.GET(RouteHealthz, app.healthzHandler)

	api := router.Group("", limit)
	api.POST(RouteAPIGame, app.apiGameHandler)
	api.POST(RouteAPIMeme, app.apiMemeHandler)
	api.POST(RouteAPICloud, app.apiWordCloudHandler)

	return router
}

func startServer(app *App, router *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		app.waitForGenerations(ctx)
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", app.Config.Port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}
