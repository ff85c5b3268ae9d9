package main

import (
	"context"
	"log"

	"github.com/cleitonmarx/symbiont"

	"grocerly/internal/bus"
	"grocerly/internal/config"
	"grocerly/internal/consumer"
	"grocerly/internal/events"
	"grocerly/internal/handler"
	"grocerly/internal/middleware"
	"grocerly/internal/outbox"
	"grocerly/internal/repository"
	"grocerly/internal/server"
	"grocerly/internal/services"
	"grocerly/pkg/database"
	"grocerly/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("catalog: failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	defer l.Logger.Sync()
	logger.SetGlobalLogger(l)

	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		l.Errorf("catalog: failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	if err := database.ApplyRawMigrations(db, "migrations/catalog"); err != nil {
		l.Errorf("catalog: failed to apply migrations: %v", err)
		return
	}

	client, err := bus.Connect(context.Background(), cfg.Redis, cfg.Bus)
	if err != nil {
		l.Errorf("catalog: failed to connect to message bus: %v", err)
		return
	}
	defer client.Close()

	categoryRepo := repository.NewCategoryRepository(db)
	itemRepo := repository.NewItemRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	deadRepo := repository.NewDeadLetterRepository(db)

	publisher := outbox.NewPublisher(outboxRepo, cfg.Outbox)
	catalogService := services.NewCatalogService(db, categoryRepo, itemRepo, publisher, l)

	dispatcher := outbox.NewDispatcher(outboxRepo, deadRepo,
		bus.NewRedisPublisher(client), events.StreamCatalog, cfg.Outbox, l)

	// The catalog service consumes its own stream to keep the denormalized
	// category name on items in sync with category renames and deletes.
	registry := consumer.NewRegistry(l)
	consumer.RegisterCategoryHandlers(registry, itemRepo)

	groupConsumer := bus.NewGroupConsumer(client, events.StreamCatalog,
		events.GroupCatalogService, cfg.Bus, l)
	groupConsumer.SubscribeAll(registry.BusHandler(deadRepo))
	groupConsumer.OnDeadLetter(consumer.DeadLetterSink(deadRepo, l))

	engine := server.NewEngine(cfg.Server.Environment, l)
	authed := engine.Group("/", middleware.IdentityMiddleware())
	handler.NewCatalogHandler(catalogService).RegisterRoutes(authed)

	app := symbiont.NewApp().Host(
		server.NewHTTP("catalog", cfg.Server.Port, engine, l),
		dispatcher,
		groupConsumer,
	)
	if err := app.Run(); err != nil {
		l.Errorf("catalog: %v", err)
	}
}
