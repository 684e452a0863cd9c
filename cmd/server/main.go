package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stripe/stripe-go/v83"

	"github.com/example/ambre/internal/cache"
	"github.com/example/ambre/internal/config"
	"github.com/example/ambre/internal/database"
	"github.com/example/ambre/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	stripe.Key = cfg.StripeSecretKey

	// Cart storage is an enhancement; the store sells without it.
	if err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword); err != nil {
		log.Printf("Redis connection failed, cart endpoints degraded: %v", err)
	}
	defer cache.Close()

	app := fiber.New(fiber.Config{
		AppName: "Ambre Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
