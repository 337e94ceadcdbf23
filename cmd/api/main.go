package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/admin"
	"github.com/dustin/movie-recommender/internal/cache"
	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/movie"
	"github.com/dustin/movie-recommender/internal/movielens"
	"github.com/dustin/movie-recommender/internal/recommendation"
	"github.com/dustin/movie-recommender/internal/repository"
	"github.com/dustin/movie-recommender/internal/similarity"
	"github.com/dustin/movie-recommender/internal/utils"
	"github.com/dustin/movie-recommender/internal/worker"
	"github.com/dustin/movie-recommender/pkg/database"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "movie-recommender"

func main() {
	// Raw string configuration from CONFIG_FILE and the environment
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	appLogger.Info("Starting movie recommender service")

	source, err := newCorpusSource(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize corpus source: " + err.Error())
	}

	params, err := similarity.ParamsFromConfig(&cfg.Engine)
	if err != nil {
		appLogger.Fatal("Failed to parse similarity parameters: " + err.Error())
	}

	waitForIndex := false
	if cfg.Engine.WaitForIndex != "" {
		waitForIndex, err = strconv.ParseBool(cfg.Engine.WaitForIndex)
		if err != nil {
			appLogger.Fatal("Invalid wait for index '" + cfg.Engine.WaitForIndex + "': " + err.Error())
		}
	}

	engine, err := recommendation.NewFacade(source, params, appLogger, recommendation.WithWaitForIndex(waitForIndex))
	if err != nil {
		appLogger.Fatal("Failed to initialize engine: " + err.Error())
	}

	// Response cache is optional; a nil *RedisCache must not leak into the interface
	var responseCache recommendation.ResponseCache
	var redisCache *cache.RedisCache
	if cfg.Cache.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err = cache.NewRedisCache(ctx, &cfg.Cache, appLogger)
		cancel()
		if err != nil {
			appLogger.Warn("Response cache disabled: " + err.Error())
			redisCache = nil
		} else {
			responseCache = redisCache
			appLogger.Info("Response cache connected at " + cfg.Cache.Addr)
		}
	}

	recommendationService, err := recommendation.NewService(engine, &cfg.Engine, responseCache, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize recommendation service: " + err.Error())
	}

	adminService, err := admin.NewService(&cfg.JWT, &cfg.Admin, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize admin service: " + err.Error())
	}

	rateLimiter, err := utils.NewRateLimiterFromConfig(&cfg.Server)
	if err != nil {
		appLogger.Fatal("Failed to initialize rate limiter: " + err.Error())
	}

	recommendationHandler := recommendation.NewHandler(recommendationService, appLogger)
	movieHandler := movie.NewHandler(engine)
	adminHandler := admin.NewHandler(adminService, engine, appLogger)

	rebuild := func(ctx context.Context) error {
		_, err := engine.Rebuild(ctx)
		return err
	}

	rebuildWorker, err := worker.NewRebuildWorker(&cfg.Worker, "index-rebuild", rebuild, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize rebuild worker: " + err.Error())
	}

	// Serve immediately; queries see index_unavailable until the first build lands
	go func() {
		if err := rebuild(context.Background()); err != nil {
			appLogger.Error("Initial index build failed: " + err.Error())
		}
	}()

	if err := rebuildWorker.Start(); err != nil {
		appLogger.Error("Failed to start rebuild worker: " + err.Error())
	}

	router := gin.New()
	router.Use(requestid.New())
	router.Use(appLogger.Middleware())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins(cfg.Server.AllowOrigins),
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		status := engine.Status()
		cacheState := "disabled"
		if redisCache != nil {
			cacheState = redisCache.State()
		}
		health := "healthy"
		if !status.Ready {
			health = "starting"
		}
		lastScheduled, scheduledErr := rebuildWorker.LastResult()
		scheduled := gin.H{
			"running":  rebuildWorker.IsRunning(),
			"next_run": rebuildWorker.NextRun(),
			"last_run": lastScheduled,
		}
		if scheduledErr != nil {
			scheduled["last_error"] = scheduledErr.Error()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         health,
			"timestamp":      time.Now(),
			"service":        serviceName,
			"engine":         status,
			"rebuild_worker": scheduled,
			"cache":          cacheState,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The recommend endpoint is served at the root and under /api/v1
	recommendRoutes := []gin.IRouter{router.Group("/"), router.Group("/api/v1")}
	for _, group := range recommendRoutes {
		if rateLimiter != nil {
			group.Use(rateLimiter.Middleware())
		}
		recommendationHandler.RegisterRoutes(group)
	}

	v1 := router.Group("/api/v1")
	{
		movieHandler.RegisterRoutes(v1)
		adminHandler.RegisterRoutes(v1)
	}

	stopCleanup := make(chan struct{})
	if rateLimiter != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					rateLimiter.Cleanup()
				case <-stopCleanup:
					return
				}
			}
		}()
	}

	serverPort := cfg.Server.Port
	if serverPort == "" {
		serverPort = "8080" // default
	}

	serverReadTimeout := 30 * time.Second // default
	if cfg.Server.ReadTimeout != "" {
		if duration, err := time.ParseDuration(cfg.Server.ReadTimeout); err == nil {
			serverReadTimeout = duration
		}
	}

	serverWriteTimeout := 30 * time.Second // default
	if cfg.Server.WriteTimeout != "" {
		if duration, err := time.ParseDuration(cfg.Server.WriteTimeout); err == nil {
			serverWriteTimeout = duration
		}
	}

	serverEnvironment := cfg.Server.Environment
	if serverEnvironment == "" {
		serverEnvironment = "development" // default
	}

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server: " + err.Error())
		}
	}()

	appLogger.Info("Server started successfully on port " + serverPort + " (" + serverEnvironment + " environment)")

	// SIGHUP rebuilds the index in place; SIGINT and SIGTERM shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig != syscall.SIGHUP {
			break
		}
		started := engine.StartRebuild(context.Background(), func(_ *recommendation.Snapshot, err error) {
			if err != nil {
				appLogger.Error("Signal-triggered rebuild failed: " + err.Error())
			}
		})
		if !started {
			appLogger.Info("Received SIGHUP while a rebuild is running, ignoring")
			continue
		}
		appLogger.Info("Received SIGHUP, rebuilding index")
	}

	appLogger.Info("Shutting down server...")

	if err := rebuildWorker.Stop(); err != nil {
		appLogger.Error("Error stopping rebuild worker: " + err.Error())
	}
	close(stopCleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown: " + err.Error())
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			appLogger.Error("Error closing response cache: " + err.Error())
		}
	}

	appLogger.Info("Server shutdown complete")
}

// newCorpusSource selects the ratings backend named by CORPUS_SOURCE
func newCorpusSource(cfg *config.Config, log *logger.Logger) (catalog.Source, error) {
	switch strings.ToLower(cfg.Corpus.Source) {
	case "", "movielens":
		log.Info("Loading MovieLens corpus from files")
		return movielens.NewSource(&cfg.Corpus, log), nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("Database connection established")

		src := repository.NewGORMCorpusSource(db, log)
		if err := src.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("Database migration completed")
		return src, nil
	default:
		return nil, fmt.Errorf("unknown corpus source '%s'", cfg.Corpus.Source)
	}
}

func allowOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:5173"} // default
	}
	origins := make([]string, 0)
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
