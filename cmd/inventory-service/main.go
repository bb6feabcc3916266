// Command inventory-service serves products and promotions and consumes stock adjustments.
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
		fmt.Fprintln(os.Stderr, "inventory-service:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("inventory-service", ".env", filepath.Join("cmd", "inventory-service", ".env"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.InventoryService)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
