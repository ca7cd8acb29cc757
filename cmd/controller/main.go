package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/open-rover/controller/domain/rover"
	"github.com/open-rover/controller/pkg/api"
	"github.com/open-rover/controller/pkg/config"
	"github.com/open-rover/controller/pkg/dispatch"
	customlog "github.com/open-rover/controller/pkg/log"
	"github.com/open-rover/controller/pkg/zeromq"
)

func main() {
	configDir := flag.String("config", "config", "Directory containing controller_config.yaml")
	flag.Parse()

	cfg, err := config.LoadBootstrapConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config: %v", err)
	}

	logger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Infof("Rover hazard controller starting")

	// The controller is created after the transport, so the sensor handler
	// closes over this variable.
	var ctrl *rover.Controller

	zmqService, err := zeromq.NewZeroMQService(&cfg.ZeroMQ, func(meters float64) error {
		return ctrl.OnDistanceReading(meters)
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize ZeroMQ service: %v", err)
	}

	queue := dispatch.NewQueue(zmqService, cfg.ZeroMQ.MessageBufferSize, logger)
	statusHub := api.NewStatusHub(logger)
	publisher := rover.NewFanout(logger,
		zeromq.NewRoverPublisher(queue),
		statusHub,
	)

	ctrl = rover.NewController(rover.Options{
		HazardThreshold: cfg.Safety.HazardThresholdM,
		SafeSpeedCap:    cfg.Safety.SafeSpeedCap,
		CommandRateHz:   cfg.Control.CommandRateHz,
		Deadzone:        cfg.Control.InputDeadzone,
	}, publisher, logger)

	queue.Start()
	ctrl.Start()
	if err := zmqService.Start(); err != nil {
		logger.Fatalf("Failed to start ZeroMQ service: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Open-Rover Controller",
		ErrorHandler: customErrorHandler,
	})
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "open-rover controller",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api.RegisterSafetyRoutes(app, ctrl, logger)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/control", websocket.New(func(conn *websocket.Conn) {
		api.ControlWebSocketHandler(conn, ctrl, cfg.Control.InputDeadzone, logger)
	}))
	app.Get("/ws/status", websocket.New(statusHub.StatusWebSocketHandler))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		logger.Infof("HTTP server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Errorf("HTTP server forced to shutdown: %v", err)
	}

	zmqService.Stop()
	ctrl.Stop()
	queue.Stop()

	logger.Infof("Rover hazard controller exited")
	os.Exit(0)
}

// customErrorHandler returns API errors as JSON.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
