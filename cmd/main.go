package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"render-relay/internal/bot"
	"render-relay/internal/channels"
	"render-relay/internal/commands"
	"render-relay/internal/config"
	"render-relay/internal/logging"
	"render-relay/internal/metrics"
	"render-relay/internal/provision"
	"render-relay/internal/relay"
	"render-relay/internal/server"
	"render-relay/internal/settings"
)

func main() {
	fmt.Println("Starting Render Deploy Relay")

	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := initializeLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Logging init failed: %v\n", err)
		os.Exit(1)
	}
	defer logging.Shutdown()

	store, err := initializeStore(cfg)
	if err != nil {
		logging.Error("Settings backend init failed: %v", err)
		os.Exit(1)
	}
	store.Load()

	session, err := bot.New(cfg.Bot.Token)
	if err != nil {
		logging.Error("Discord session init failed: %v", err)
		os.Exit(1)
	}
	if err := session.Connect(); err != nil {
		logging.Error("Discord connect failed: %v", err)
		os.Exit(1)
	}
	defer session.Close()

	counters := metrics.NewCounters()
	discord := session.Discord()
	resolver := channels.NewResolver(discord, store, session.BotID)
	provisioner := provision.New(discord, store, resolver, session.BotID)
	dispatcher := relay.NewDispatcher(discord, resolver, store, counters, session.GuildIDs)
	cmdHandler := commands.NewHandler(store, provisioner, counters)

	session.BindHandlers(provisioner, store, cmdHandler.HandleMessage)
	stopPresence := session.StartPresenceRotation()
	defer stopPresence()

	srv := server.New(cfg.Webhook.Secret, dispatcher, counters)
	go func() {
		if err := srv.ListenAndServe(cfg.Webhook.Port); err != nil {
			logging.Error("Webhook server stopped: %v", err)
		}
	}()

	logging.Info("All components started")
	waitForShutdown()

	srv.Shutdown()
	logging.Info("Shutdown complete")
}

func initializeLogging(cfg *config.Config) error {
	level := logging.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.Init(level, cfg.Logging.File)
}

func initializeStore(cfg *config.Config) (*settings.Store, error) {
	var backend settings.Backend
	var err error

	switch cfg.Storage.Backend {
	case "sqlite":
		backend, err = settings.NewSQLiteBackend(cfg.Storage.DataDir)
	default:
		backend, err = settings.NewFileBackend(cfg.Storage.DataDir)
	}
	if err != nil {
		return nil, err
	}
	return settings.NewStore(backend), nil
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
