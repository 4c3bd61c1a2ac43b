package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/palmhaven/booking-api/config"
	"github.com/palmhaven/booking-api/internal/consumer"
	"github.com/palmhaven/booking-api/internal/handler"
	"github.com/palmhaven/booking-api/internal/middleware"
	"github.com/palmhaven/booking-api/internal/payments"
	"github.com/palmhaven/booking-api/internal/repository"
	"github.com/palmhaven/booking-api/internal/service"
	"github.com/palmhaven/booking-api/pkg/database"
	"github.com/palmhaven/booking-api/pkg/eventcache"
	"github.com/palmhaven/booking-api/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// Repositories
	propertyRepo := repository.NewPropertyRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	blockedRepo := repository.NewBlockedDateRepository(db)
	feedRepo := repository.NewCalendarFeedRepository(db)

	// Payment provider
	var payClient payments.Client
	if cfg.StripeSecretKey != "" {
		payClient = payments.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Println("[Main] STRIPE_SECRET_KEY not set, payment processing disabled")
	}

	// Services
	bookingSvc := service.NewBookingService(bookingRepo, propertyRepo, blockedRepo, payClient, "usd", service.CheckoutURLs{
		Success: cfg.PublicBaseURL + "/booking/success",
		Cancel:  cfg.PublicBaseURL + "/booking/cancelled",
	})
	calendarSvc := service.NewCalendarService(feedRepo, blockedRepo, propertyRepo, cfg.FetchTimeout, cfg.ICalNamespace)

	// RabbitMQ: best-effort background resync after confirmed payments.
	// The service runs without it; resync then happens only on the timer.
	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		var err error
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()

		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewResyncConsumer(calendarSvc).Start(msgs)
	} else {
		log.Println("[Main] RABBITMQ_URL not set, post-payment resync disabled")
	}

	seen := eventcache.New(cfg.RedisAddr, 24*time.Hour)
	defer seen.Close()

	// A nil *rabbitmq.Publisher must stay a nil interface value.
	var resyncPub service.ResyncPublisher
	if publisher != nil {
		resyncPub = publisher
	}
	paymentSvc := service.NewPaymentService(bookingRepo, bookingSvc, resyncPub, seen)

	// Periodic full sync of all registered feeds
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncInterval)
			summary, err := calendarSvc.SyncAll(ctx)
			cancel()
			if err != nil {
				log.Printf("[Main] scheduled sync failed: %v", err)
				continue
			}
			log.Printf("[Main] scheduled sync: %d new ranges across %d feeds", summary.Imported, len(summary.Feeds))
		}
	}()

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = handler.NewValidator()
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "booking-api"})
	})

	public := e.Group("/api/v1")
	admin := e.Group("/api/v1/admin", middleware.AdminAuth(cfg.AdminJWTSecret))

	handler.NewBookingHandler(bookingSvc).RegisterRoutes(public, admin)
	handler.NewPropertyHandler(propertyRepo, blockedRepo, calendarSvc).RegisterRoutes(public, admin)
	handler.NewCalendarHandler(calendarSvc).RegisterRoutes(admin)
	if payClient != nil {
		handler.NewWebhookHandler(payClient, paymentSvc).RegisterRoutes(public)
	}

	log.Printf("Booking API starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
