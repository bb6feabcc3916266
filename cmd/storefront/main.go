// Command storefront runs the transaction and inventory services in one process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Zhima-Mochi/storefront/internal/app"
	"github.com/Zhima-Mochi/storefront/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("storefront", ".env", filepath.Join("cmd", "storefront", ".env"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Storefront)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
