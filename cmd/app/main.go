package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"engagement-service/internal/config"
	"engagement-service/pkg/log"
	"engagement-service/pkg/redis"
	websocketPkg "engagement-service/pkg/websocket"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded: %v", envErr)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	vision := websocketPkg.NewVisionClient(logger)
	reportCache := redis.New(logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithVisionClient(vision),
		config.WithReportCache(reportCache),
		config.WithUtils(),
		config.WithMiddleware(),
		config.WithBatchWorkers(0),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
