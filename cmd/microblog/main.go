package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/microblog-go/microblog/internal/common/bootstrap"
	"github.com/microblog-go/microblog/internal/common/config"
	"github.com/microblog-go/microblog/internal/common/logger"
	srv "github.com/microblog-go/microblog/internal/common/server"
)

func main() {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogDir, "microblog", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer app.Close()

	serverConfig := srv.DefaultConfig(cfg.HTTPPort)
	server := srv.New(serverConfig, app.Handler)

	if err := srv.Run(ctx, server, serverConfig, log); err != nil {
		log.Errorf("server stopped: %v", err)
		app.Close()
		os.Exit(1)
	}
}
