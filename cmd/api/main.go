package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/apnishop-api/internal/config"
	"github.com/flicky/apnishop-api/internal/handler"
	"github.com/flicky/apnishop-api/internal/mailer"
	"github.com/flicky/apnishop-api/internal/repository"
	"github.com/flicky/apnishop-api/internal/service"
	"github.com/flicky/apnishop-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	dbPool, err := repository.Connect(ctx, cfg.DB.DSN(), cfg.DB.MaxConns)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("connected to PostgreSQL")

	version, err := repository.Migrate(cfg.DB.DSN())
	if err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database schema up to date", "version", version)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer publishCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	tx := repository.NewTransactor(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	addressRepo := repository.NewAddressRepository(dbPool)
	couponRepo := repository.NewCouponRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	wishlistRepo := repository.NewWishlistRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	userSvc := service.NewUserService(userRepo)
	categorySvc := service.NewCategoryService(categoryRepo, tx, log)
	productSvc := service.NewProductService(productRepo, categoryRepo, tx, redisClient, log)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	addressSvc := service.NewAddressService(addressRepo, tx)
	couponSvc := service.NewCouponService(couponRepo)
	orderSvc := service.NewOrderService(service.OrderRepos{
		Orders:   orderRepo,
		Carts:    cartRepo,
		Products: productRepo,
		Address:  addressRepo,
		Coupons:  couponRepo,
	}, tx, worker.NewPublisher(publishCh), service.OrderOptions{
		Policy:      cfg.Pricing.Policy(),
		MaxAttempts: cfg.Checkout.MaxAttempts,
		Timeout:     cfg.Checkout.Timeout,
	}, log)
	wishlistSvc := service.NewWishlistService(wishlistRepo, cartRepo, tx)
	statsSvc := service.NewStatsService(statsRepo, redisClient)
	reviewSvc := service.NewReviewService(reviewRepo, productRepo)

	// Worker
	smtpSender, err := mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	if err != nil {
		log.Error("configure SMTP", "error", err)
		os.Exit(1)
	}
	notificationWorker := worker.NewNotificationWorker(
		consumeCh, orderRepo, userRepo,
		mailer.New(smtpSender, log),
		worker.NewRedisDeduper(redisClient),
		log.With("component", "notification_worker"),
	)

	// Router
	gin.SetMode(cfg.Server.GinMode)
	if err := handler.RegisterValidators(); err != nil {
		log.Error("register validators", "error", err)
		os.Exit(1)
	}
	router := handler.NewRouter(handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Product:  handler.NewProductHandler(productSvc),
		Category: handler.NewCategoryHandler(categorySvc),
		Cart:     handler.NewCartHandler(cartSvc),
		Address:  handler.NewAddressHandler(addressSvc),
		Order:    handler.NewOrderHandler(orderSvc),
		Coupon:   handler.NewCouponHandler(couponSvc),
		Wishlist: handler.NewWishlistHandler(wishlistSvc),
		Review:   handler.NewReviewHandler(reviewSvc),
		User:     handler.NewUserHandler(userSvc),
		Admin:    handler.NewAdminHandler(statsSvc),
		Health: handler.NewHealthHandler(
			handler.Dependency{Name: "postgres", Ping: dbPool.Ping},
			handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			handler.Dependency{Name: "rabbitmq", Ping: func(context.Context) error {
				if amqpConn.IsClosed() {
					return amqp.ErrClosed
				}
				return nil
			}},
		),
	}, cfg.JWT.Secret, log)

	if err := notificationWorker.Start(ctx); err != nil {
		log.Error("start notification worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	notificationWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
