package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sundayezeilo/linkmetrics/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := application.Shutdown(context.Background()); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()

	// blocks until a signal or server failure
	return application.Start(ctx)
}
