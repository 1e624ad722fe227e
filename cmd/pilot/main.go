package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/affiliate-ledger/internal/pilot"
	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/internal/walletproviders"
	"github.com/angelmondragon/affiliate-ledger/pkg/config"
	"github.com/angelmondragon/affiliate-ledger/pkg/db"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "affiliate-pilot"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "seed", "pilot command: seed|reset")
	confirm := flag.Bool("confirm", false, "required for reset")
	flag.Parse()

	if *cmd == "reset" && !*confirm {
		fmt.Fprintln(os.Stderr, "reset deletes ledger data; pass -confirm to proceed")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	if *cmd == "reset" && cfg.App.IsProd() {
		fmt.Fprintln(os.Stderr, "reset is disabled in prod")
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "affiliate-pilot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	svc, err := pilot.NewService(pilot.ServiceParams{
		Shops:             shops.NewRepository(dbClient.DB()),
		Providers:         walletproviders.NewRepository(dbClient.DB()),
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	requireResource(ctx, logg, "pilot service", err)

	switch *cmd {
	case "seed":
		res, err := svc.Seed(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("shop %s (created=%t) affiliationCode=%s\n", res.Shop.ID, res.ShopCreated, res.Shop.AffiliationCode)
		fmt.Printf("wallet provider %s (created=%t)\n", res.Provider.ID, res.ProviderCreated)

	case "reset":
		res, err := svc.Reset(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("deleted commissions=%d invoices=%d affiliateUsers=%d webhookEvents=%d\n",
			res.Commissions, res.Invoices, res.AffiliateUsers, res.WebhookEvents)

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
