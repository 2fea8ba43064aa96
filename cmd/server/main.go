package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/parley-chat/parley/internal/api"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/directory"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "", "postgres connection string (empty selects the in-memory directory)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[parley] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	var dir directory.Repository
	if cfg.DatabaseDSN != "" {
		pgDir, err := directory.NewPgRepository(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("directory open:", err)
		}
		defer func() {
			if err := pgDir.Close(); err != nil {
				logger.Println("directory close:", err)
			}
		}()
		dir = pgDir
	} else {
		memDir, err := directory.NewMemoryRepository()
		if err != nil {
			logger.Fatal("directory init:", err)
		}
		dir = memDir
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	broadcaster := server.NewBroadcaster(chatServer, logger)
	registry := presence.NewRegistry(logger, broadcaster)
	router := server.NewSessionRouter(logger, dir, registry, broadcaster, chatServer, statsUpdater)

	srv := api.NewChatApp(mux, logger, chatServer, router, broadcaster, registry, dir, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
