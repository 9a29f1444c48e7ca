package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/omega-realm/scruffy/internal/sploit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sploit.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
