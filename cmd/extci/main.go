package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"extci/internal/commands"
	"extci/internal/env"
	"extci/internal/logging"
)

func main() {
	log := logging.Component("extci")

	if err := env.Init("", ""); err != nil {
		log.WithError(err).Warn("could not load configuration")
	}

	// an interrupted run cancels the job instead of killing it mid-step
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.Root()
	if err := cmd.Run(ctx, os.Args); err != nil {
		stop()
		log.Error(err.Error())
		os.Exit(1)
	}
}
