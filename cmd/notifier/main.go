package main

import (
	"context"
	"log"

	"github.com/cleitonmarx/symbiont"

	"grocerly/internal/bus"
	"grocerly/internal/config"
	"grocerly/internal/events"
	"grocerly/internal/relay"
	"grocerly/internal/server"
	"grocerly/internal/services"
	"grocerly/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("notifier: failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	defer l.Logger.Sync()
	logger.SetGlobalLogger(l)

	client, err := bus.Connect(context.Background(), cfg.Redis, cfg.Bus)
	if err != nil {
		l.Errorf("notifier: failed to connect to message bus: %v", err)
		return
	}
	defer client.Close()

	// Token verification only; the notifier holds no user store.
	auth := services.NewAuthService(nil, cfg.Auth)

	hub := relay.NewHub()
	bridge := relay.NewBridge(hub, l)

	catalogConsumer := bus.NewGroupConsumer(client, events.StreamCatalog,
		events.GroupNotifierService, cfg.Bus, l)
	listConsumer := bus.NewGroupConsumer(client, events.StreamShoppingList,
		events.GroupNotifierService, cfg.Bus, l)
	bridge.Attach(catalogConsumer, listConsumer)

	engine := server.NewEngine(cfg.Server.Environment, l)
	engine.GET("/ws", relay.NewHandler(auth, hub).Connect)

	app := symbiont.NewApp().Host(
		server.NewHTTP("notifier", cfg.Server.Port, engine, l),
		hub,
		catalogConsumer,
		listConsumer,
	)
	if err := app.Run(); err != nil {
		l.Errorf("notifier: %v", err)
	}
}
