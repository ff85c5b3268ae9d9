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
		log.Fatalf("shoppinglist: failed to load config: %v", err)
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
		l.Errorf("shoppinglist: failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	if err := database.ApplyRawMigrations(db, "migrations/shoppinglist"); err != nil {
		l.Errorf("shoppinglist: failed to apply migrations: %v", err)
		return
	}

	client, err := bus.Connect(context.Background(), cfg.Redis, cfg.Bus)
	if err != nil {
		l.Errorf("shoppinglist: failed to connect to message bus: %v", err)
		return
	}
	defer client.Close()

	listRepo := repository.NewShoppingListRepository(db)
	readModel := repository.NewCatalogReadModel(db)
	outboxRepo := repository.NewOutboxRepository(db)
	deadRepo := repository.NewDeadLetterRepository(db)

	publisher := outbox.NewPublisher(outboxRepo, cfg.Outbox)
	listService := services.NewShoppingListService(db, listRepo, readModel, publisher, l)

	dispatcher := outbox.NewDispatcher(outboxRepo, deadRepo,
		bus.NewRedisPublisher(client), events.StreamShoppingList, cfg.Outbox, l)

	// Catalog events project into the local read model so list operations
	// never call the catalog service directly.
	registry := consumer.NewRegistry(l)
	consumer.RegisterCategoryHandlers(registry, readModel)
	consumer.RegisterItemHandlers(registry, readModel)

	catalogConsumer := bus.NewGroupConsumer(client, events.StreamCatalog,
		events.GroupShoppingListService, cfg.Bus, l)
	catalogConsumer.SubscribeAll(registry.BusHandler(deadRepo))
	catalogConsumer.OnDeadLetter(consumer.DeadLetterSink(deadRepo, l))

	engine := server.NewEngine(cfg.Server.Environment, l)
	authed := engine.Group("/", middleware.IdentityMiddleware())
	handler.NewShoppingListHandler(listService).RegisterRoutes(authed)

	app := symbiont.NewApp().Host(
		server.NewHTTP("shoppinglist", cfg.Server.Port, engine, l),
		dispatcher,
		catalogConsumer,
	)
	if err := app.Run(); err != nil {
		l.Errorf("shoppinglist: %v", err)
	}
}
