package main

import (
	"log"

	"github.com/cleitonmarx/symbiont"

	"grocerly/internal/config"
	"grocerly/internal/gateway"
	"grocerly/internal/handler"
	"grocerly/internal/middleware"
	"grocerly/internal/repository"
	"grocerly/internal/server"
	"grocerly/internal/services"
	"grocerly/pkg/database"
	"grocerly/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("gateway: failed to load config: %v", err)
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
		l.Errorf("gateway: failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	if err := database.ApplyRawMigrations(db, "migrations/gateway"); err != nil {
		l.Errorf("gateway: failed to apply migrations: %v", err)
		return
	}

	authService := services.NewAuthService(repository.NewUserRepository(db), cfg.Auth)

	proxy, err := gateway.NewProxy(cfg.Gateway, l)
	if err != nil {
		l.Errorf("gateway: failed to build proxy: %v", err)
		return
	}

	engine := server.NewEngine(cfg.Server.Environment, l)
	handler.NewAuthHandler(authService).RegisterRoutes(engine)
	engine.GET("/ws", proxy.Notifier)
	engine.NoRoute(middleware.AuthMiddleware(authService), proxy.Route)

	app := symbiont.NewApp().Host(
		server.NewHTTP("gateway", cfg.Server.Port, engine, l),
	)
	if err := app.Run(); err != nil {
		l.Errorf("gateway: %v", err)
	}
}
