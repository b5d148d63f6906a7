package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/ridwantaufk/todolist-with-chat/auth"
	"github.com/ridwantaufk/todolist-with-chat/config"
	"github.com/ridwantaufk/todolist-with-chat/handlers"
	"github.com/ridwantaufk/todolist-with-chat/notifier"
	"github.com/ridwantaufk/todolist-with-chat/service"
	"github.com/ridwantaufk/todolist-with-chat/store"
)

func main() {
	// .env is optional; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, cleanup := config.SetupLogger(cfg.LogFile, config.ParseLogLevel(cfg.LogLevel))
	defer cleanup()

	// --- Change Notifier ---
	bus := notifier.NewBus()
	var notif notifier.Notifier = bus
	if cfg.NatsURL != "" {
		natsBus, err := notifier.NewNatsBus(cfg.NatsURL, bus, log)
		if err != nil {
			log.Error("failed to initialize NATS notifier", "error", err)
			os.Exit(1)
		}
		defer natsBus.Close()
		notif = natsBus
		log.Info("change notifier bridged over NATS", "url", cfg.NatsURL)
	}

	// --- Message Store ---
	st, err := store.New(cfg.DBPath, notif, log)
	if err != nil {
		log.Error("failed to open message store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	chatSvc := service.NewChat(st)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New())

	handlers.NewChat(chatSvc, notif, verifier, log).Register(app)

	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := app.Listen(cfg.Addr); err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		log.Error("error shutting down", "error", err)
	}

	log.Info("server gracefully stopped")
}
