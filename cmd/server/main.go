package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"extci/internal"
	"extci/internal/db"
	"extci/internal/env"
	"extci/internal/events"
	"extci/internal/logging"
	"extci/internal/swagger"

	"github.com/gofiber/fiber/v3"
)

func main() {
	deployment := flag.String("deployment", "", "deployment profile (dev|test|prod)")
	portFlag := flag.String("port", "", "port to listen on")
	envRoot := flag.String("env-root", "", "directory containing environment files")
	appVersion := flag.String("app-version", "", "application version override")

	flag.Parse()

	log := logging.Component("server")

	deploy := strings.TrimSpace(*deployment)
	if deploy == "" {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Println("Usage: server --deployment <type> --port <port> [--env-root <dir>] [--app-version <version>]")
			os.Exit(1)
		}
		deploy = strings.TrimSpace(args[0])
	}

	port := strings.TrimSpace(*portFlag)
	if port == "" {
		log.Fatal("port is required")
	}

	app, dispatcher := internal.SetupApp(deploy, *envRoot, *appVersion)
	swagger.Register(app)

	log.WithField("version", env.VERSION).Info("starting extci server")

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := dispatcher.Stop(ctx); err != nil {
			log.WithError(err).Warn("dispatcher did not stop in time")
		}
		_ = app.ShutdownWithContext(ctx)
	}()

	if err := app.Listen(fmt.Sprintf(":%s", port), fiber.ListenConfig{
		DisableStartupMessage: true,
	}); err != nil {
		log.WithError(err).Fatalf("error listening on port %s", port)
	}

	events.Em.Close()
	db.Close()
}
