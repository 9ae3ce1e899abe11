package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/roomrelay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional YAML config file")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	server.SetConfig(config)
	active := server.CurrentConfig()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: server.ParseLogLevel(active.LogLevel),
	})))
	if envErr != nil {
		slog.Debug("no .env file loaded", "error", envErr)
	}

	if err := run(active); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run serves until SIGINT or SIGTERM, then drains HTTP and closes every
// WebSocket before returning.
func run(active server.Config) error {
	hub := server.NewHub(server.NewRegistry())
	server.StartHub(hub)

	httpServer := server.CreateServer(active.Port, server.SetupRoutes(hub))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartServer(httpServer)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown requested")
		if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
			return err
		}
		return hub.Shutdown(shutdownTimeout)
	})

	return g.Wait()
}

func loadConfig(path string) (*server.Config, error) {
	if path == "" {
		return server.NewConfigFromEnv(), nil
	}
	return server.LoadConfigFile(path)
}
