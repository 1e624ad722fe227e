// Package bootstrap assembles the ledger services shared by the binaries.
package bootstrap

import (
	"github.com/angelmondragon/affiliate-ledger/internal/affiliates"
	"github.com/angelmondragon/affiliate-ledger/internal/balance"
	"github.com/angelmondragon/affiliate-ledger/internal/commissions"
	"github.com/angelmondragon/affiliate-ledger/internal/events"
	"github.com/angelmondragon/affiliate-ledger/internal/invoices"
	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/internal/walletproviders"
	providerwebhook "github.com/angelmondragon/affiliate-ledger/internal/webhooks/provider"
	"github.com/angelmondragon/affiliate-ledger/internal/withdrawals"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/config"
	"github.com/angelmondragon/affiliate-ledger/pkg/db"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	"github.com/angelmondragon/affiliate-ledger/pkg/metrics"
)

type Services struct {
	Shops       shops.Repository
	Providers   walletproviders.Repository
	Webhooks    *providerwebhook.Service
	Balance     *balance.Engine
	Withdrawals *withdrawals.Service
	Deriver     *commissions.Deriver
}

// Build wires every service against client. m may be nil.
func Build(cfg *config.Config, logg *logger.Logger, client *db.Client, clk clock.Clock, m *metrics.LedgerMetrics) (*Services, error) {
	conn := client.DB()
	shopRepo := shops.NewRepository(conn)
	providerRepo := walletproviders.NewRepository(conn)

	store, err := events.NewStore(events.NewRepository(conn), clk)
	if err != nil {
		return nil, err
	}
	resolver, err := affiliates.NewResolver(affiliates.ResolverParams{
		Repo:      affiliates.NewRepository(conn),
		Shops:     shopRepo,
		Providers: providerRepo,
		Clock:     clk,
	})
	if err != nil {
		return nil, err
	}
	ledger, err := invoices.NewLedger(invoices.LedgerParams{
		Repo:            invoices.NewRepository(conn),
		Shops:           shopRepo,
		Providers:       providerRepo,
		Clock:           clk,
		Logger:          logg,
		Metrics:         m,
		DefaultCurrency: cfg.Ledger.Currency,
	})
	if err != nil {
		return nil, err
	}
	webhooks, err := providerwebhook.NewService(providerwebhook.ServiceParams{
		Events:            store,
		Affiliates:        resolver,
		Invoices:          ledger,
		TransactionRunner: client,
		Logger:            logg,
		Metrics:           m,
	})
	if err != nil {
		return nil, err
	}
	deriver, err := commissions.NewDeriver(commissions.DeriverParams{
		Repo:       commissions.NewRepository(conn),
		Shops:      shopRepo,
		Logger:     logg,
		Metrics:    m,
		HoldPeriod: cfg.Ledger.HoldPeriod,
		BatchSize:  cfg.Ledger.DerivationBatchSize,
	})
	if err != nil {
		return nil, err
	}
	engine, err := balance.NewEngine(balance.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	payouts, err := withdrawals.NewService(withdrawals.ServiceParams{
		Repo:              withdrawals.NewRepository(conn),
		Shops:             shopRepo,
		Balance:           engine,
		TransactionRunner: client,
		Clock:             clk,
		Logger:            logg,
		Metrics:           m,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Shops:       shopRepo,
		Providers:   providerRepo,
		Webhooks:    webhooks,
		Balance:     engine,
		Withdrawals: payouts,
		Deriver:     deriver,
	}, nil
}
