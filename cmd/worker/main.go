package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/coursegen-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.RoleWorker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init worker: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("worker exited", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("worker stopped")
}
