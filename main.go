package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homecook-api/auth"
	"homecook-api/catalog"
	"homecook-api/config"
	"homecook-api/handlers"
	"homecook-api/routes"
	"homecook-api/session"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := config.NewLogger(cfg)
	gin.SetMode(cfg.GinMode)
	if cfg.JWTSecret == config.DefaultJWTSecret && cfg.GinMode == gin.ReleaseMode {
		log.Warn("JWT_SECRET is not set, tokens are signed with the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		stop()
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}

// run wires the application and serves until ctx is cancelled. Deferred
// cleanup runs before it returns, on success and on error.
func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := config.OpenDB(cfg, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// Change notifications: Redis when configured so every replica sees
	// every write, in-process otherwise
	var notifier store.Notifier = store.NewLocalNotifier()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("reach redis: %w", err)
		}
		notifier = store.NewRedisNotifier(client, cfg.RedisNamespace, log)
		log.WithField("namespace", cfg.RedisNamespace).Info("Using Redis change notifications")
	}

	spots := store.NewSpotRepository(db, notifier, log)
	orders := store.NewOrderStore(db, log)
	profiles := store.NewProfileStore(db)
	if cfg.SeedSampleData {
		if _, err := store.Seed(ctx, spots); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}

	cookSpots := catalog.NewSync(store.NewSpotFeed(spots, notifier, log), catalog.Options{
		Mode:         cfg.CatalogMode,
		PollInterval: cfg.CatalogPollInterval,
		Logger:       log,
	})
	defer cookSpots.Close()

	authService := auth.NewService(db, profiles, auth.Options{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
		Logger:   log,
	})
	sessions := session.NewRegistry(cookSpots, orders, session.Options{
		SearchRadius: cfg.SearchRadiusMeters,
		Logger:       log,
	})
	sessions.Watch(authService)
	defer sessions.Close()

	h := handlers.New(handlers.Deps{
		Auth:     authService,
		Profiles: profiles,
		Spots:    spots,
		Orders:   orders,
		Catalog:  cookSpots,
		Sessions: sessions,
		Logger:   log,
	})

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		state := cookSpots.State()
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      "Homecook Marketplace API",
			"version":      "1.0.0",
			"catalog":      state.Phase,
			"catalog_size": len(state.Spots),
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Homecook Marketplace API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "cook"},
		})
	})

	routes.SetupRoutes(r, h, authService)

	if err := cookSpots.Start(ctx); err != nil {
		return fmt.Errorf("start catalog sync: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// streams end when the process is asked to stop
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("Server running")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
