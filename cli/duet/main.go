package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	duetcmder "github.com/papercomputeco/duet/cmd/duet"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := duetcmder.NewDuetCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
