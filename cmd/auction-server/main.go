package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-market/internal/api/handlers"
	authmw "auction-market/internal/api/middleware"
	"auction-market/internal/auth"
	"auction-market/internal/config"
	"auction-market/internal/domain"
	"auction-market/internal/infrastructure/leader"
	"auction-market/internal/infrastructure/mysql"
	"auction-market/internal/infrastructure/redis"
	"auction-market/internal/infrastructure/websocket"
	"auction-market/internal/services"
	"auction-market/pkg/logger"
	"auction-market/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting auction market server")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// MySQL
	db, err := utils.OpenMySQL(context.Background(), cfg)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()
	log.Info("Connected to MySQL")

	// Repositories
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	userRepo := mysql.NewMySQLUserRepository(db)

	// Redis-backed components
	priceCache := redis.NewPriceCache(rdb)
	eventPublisher := redis.NewEventPublisher(rdb)
	eventSubscriber := redis.NewEventSubscriber(rdb, log)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Auth
	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		log.Error("Failed to initialize token manager", "error", err)
		os.Exit(1)
	}

	// Services
	auctionService := services.NewAuctionService(auctionRepo, priceCache, eventPublisher, log)
	bidService := services.NewBidService(auctionRepo, bidRepo, priceCache, eventPublisher, log)
	userService := services.NewUserService(userRepo, auctionRepo, bidRepo, tokens, log)
	closer := services.NewAuctionCloser(auctionService, leaderElection, cfg.Instance.ID, cfg.Closer.Interval, log)

	// Live feed: events published by any instance reach local watchers.
	hub := websocket.NewHub(log)
	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()
	go func() {
		err := eventSubscriber.SubscribeToBidEvents(subscriberCtx, func(event *domain.BidEvent) error {
			if err := hub.BroadcastToAuction(event.AuctionID, event); err != nil {
				return err
			}
			if event.Type == domain.AuctionEnded {
				return hub.CloseAuction(event.AuctionID)
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Bid event subscriber exited", "error", err)
		}
	}()

	// Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{
			echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAuthorization,
		},
		AllowCredentials: true,
	}))

	// Handlers
	requireAuth := authmw.RequireAuth(tokens)
	bidHandler := handlers.NewBidHandler(bidService, auctionService, hub, log)
	auctionHandler := handlers.NewAuctionHandler(auctionService, log)
	userHandler := handlers.NewUserHandler(userService, log)
	profileHandler := handlers.NewProfileHandler(userService, cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes, log)

	api := e.Group("/api")

	api.POST("/bids/:auctionId", bidHandler.PlaceBid, requireAuth)
	api.GET("/bids/:auctionId", bidHandler.ListBids)
	api.GET("/bids/:auctionId/live", bidHandler.Live)

	api.GET("/auctions", auctionHandler.List)
	api.POST("/auctions", auctionHandler.Create, requireAuth)
	api.GET("/auctions/:id", auctionHandler.Get)
	api.DELETE("/auctions/:id", auctionHandler.Cancel, requireAuth)

	api.POST("/users", userHandler.Register)
	api.POST("/auth/login", userHandler.Login)
	api.GET("/users/me", userHandler.Me, requireAuth)
	api.GET("/users", userHandler.List, requireAuth)
	api.PUT("/users", userHandler.Update, requireAuth)
	api.DELETE("/users", userHandler.Delete, requireAuth)

	api.GET("/profile/me", profileHandler.Me, requireAuth)
	api.PUT("/profile/update", profileHandler.Update, requireAuth)
	api.DELETE("/profile/avatar", profileHandler.DeleteAvatar, requireAuth)
	api.GET("/profile/stats", profileHandler.Stats, requireAuth)

	e.Static("/uploads", cfg.Uploads.Dir)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-market",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Background services
	if err := closer.Start(context.Background()); err != nil {
		log.Error("Failed to start auction closer", "error", err)
		os.Exit(1)
	}
	defer closer.Stop()

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became closer leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	// Start server
	serverAddr := cfg.Addr()
	log.Info("Starting HTTP server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction market server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down server cleanly", "error", err)
	}

	// Hand the closer lease over instead of waiting out the TTL.
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
}
