package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"sprintboard/internal/server"
	"sprintboard/internal/storage/csvfile"
	"sprintboard/internal/util"
)

func main() {
	// Optional .env next to the binary; absence is fine.
	_ = godotenv.Load()

	addrFlag := flag.String("addr", util.EnvOrDefault("SPRINTBOARD_ADDR", ":8080"), "HTTP listen address")
	csvFlag := flag.String("csv", util.EnvOrDefault("SPRINTBOARD_CSV", "data/issues.csv"), "Path to the issue export file")
	settingsFlag := flag.String("settings", util.EnvOrDefault("SPRINTBOARD_SETTINGS", ""), "Path to the board settings file (default: next to the export)")
	staticFlag := flag.String("static", util.EnvOrDefault("SPRINTBOARD_STATIC_DIR", "web/dist"), "Directory with the built frontend")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := csvfile.New(*csvFlag, *settingsFlag, logger)
	if err != nil {
		logger.Error("unable to open issue store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := server.New(store, logger, *staticFlag)

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("csv", *csvFlag))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
