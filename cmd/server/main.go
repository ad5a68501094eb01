package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fleet-combat/internal/api"
	"fleet-combat/internal/config"
	"fleet-combat/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🚀 ================================")
	log.Println("🚀  FLEET COMBAT - GO ENGINE")
	log.Println("🚀 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()

	catalog, err := game.LoadCatalog(appConfig.Scenario.TemplatesPath)
	if err != nil {
		log.Fatalf("❌ Failed to load templates: %v", err)
	}
	log.Printf("📦 Templates: %d ships, %d projectiles, %d effects",
		len(catalog.Ships), len(catalog.Projectiles), len(catalog.Effects))

	engine := game.NewEngine(appConfig, catalog)
	engine.SetOnTick(api.RecordTick)
	log.Printf("🛡️ Resource limits: %d entities, %d per spawn batch",
		appConfig.Limits.MaxEntities, appConfig.Limits.MaxSpawnBatch)

	// Start combat journal
	if appConfig.Journal.Enabled {
		if err := engine.StartJournal(appConfig.Journal.Path); err != nil {
			log.Printf("⚠️ Combat journal disabled: %v", err)
		} else {
			log.Printf("📝 Combat journal: %s", appConfig.Journal.Path)
		}
	}

	// Start debug server
	if err := api.StartDebugServer(appConfig.Observability); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	if appConfig.Scenario.Enabled {
		game.SeedScenario(engine, appConfig.Scenario)
	}

	server := api.NewServer(engine, appConfig.Server, appConfig.Limits)

	// Start combat engine
	engine.Start()

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(appConfig.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server.Stop(ctx)
	engine.Stop()
	engine.StopJournal()
	log.Println("👋 Goodbye!")
}
