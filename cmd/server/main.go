package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messenger-backend/internal/config"
	"messenger-backend/internal/database"
	"messenger-backend/internal/events"
	"messenger-backend/internal/handler"
	"messenger-backend/internal/middleware"
	"messenger-backend/internal/repository"
	"messenger-backend/internal/service"
	"messenger-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL, int32(cfg.DBMaxConns))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully")

	// Event fanout (optional)
	var pub events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub, err = events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Failed to connect to broker: %v", err)
		}
		defer pub.Close()
	}

	// Repositories
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	pollRepo := repository.NewPollRepository(db)

	// Services
	hub := service.NewHub()
	directory := service.NewDirectory(convRepo, pub)
	messenger := service.NewMessenger(msgRepo, convRepo, hub, pub)
	polls := service.NewPollService(pollRepo, convRepo, hub, pub)
	blobs := storage.NewHTTPBlobStore(cfg.BlobEndpoint, cfg.BlobToken)
	attachments := service.NewAttachmentService(blobs, convRepo, messenger)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    20 * 1024 * 1024, // attachments
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health
	healthH := handler.NewHealthHandler(db)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// API v1 (JWT-protected)
	v1 := app.Group("/api/v1", middleware.Auth(cfg.JWTSecret))

	convH := handler.NewConversationHandler(directory)
	v1.Get("/conversations", convH.List)
	v1.Post("/conversations", middleware.RateLimit(30, time.Minute), convH.ResolveOrCreate)

	msgH := handler.NewMessageHandler(messenger, cfg.HistoryLimit)
	v1.Get("/conversations/:id/messages", msgH.GetHistory)
	v1.Post("/conversations/:id/messages", msgH.Post)

	pollH := handler.NewPollHandler(polls)
	v1.Post("/conversations/:id/polls", pollH.Create)
	v1.Get("/polls/:id", pollH.Get)
	v1.Post("/polls/:id/votes", pollH.Vote)

	attachH := handler.NewAttachmentHandler(attachments)
	v1.Post("/conversations/:id/attachments", middleware.RateLimit(20, time.Minute), attachH.Upload)

	// WebSocket
	wsH := handler.NewWSHandler(hub, messenger, cfg.JWTSecret, cfg.HistoryLimit)
	app.Get("/ws", wsH.Upgrade)

	// Start hub
	go hub.Run()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("Messenger backend running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	hub.Shutdown()
	log.Println("Server stopped")
}
