package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"

	"copytrader/internal/accounts"
	"copytrader/internal/broker"
	"copytrader/internal/broker/dhan"
	"copytrader/internal/config"
	"copytrader/internal/dashboard"
	"copytrader/internal/engine"
	"copytrader/internal/logger"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Info("Copy trader starting.")

	dir, err := accounts.Load(cfg.Accounts.File)
	if err != nil {
		log.WithError(err).Fatal("Account sheet rejected, refusing to start.")
	}
	printAccounts(dir)

	gateways := map[string]broker.Gateway{}
	for _, acc := range dir.All() {
		gateways[acc.Name] = dhan.New(cfg.Broker.BaseURL, acc.ClientID, acc.AccessToken, cfg.Broker.Timeout, cfg.Broker.RateLimit, log)
	}

	children := make([]engine.Child, 0, len(dir.Children))
	for _, acc := range dir.Children {
		children = append(children, engine.Child{
			Account: acc,
			Gateway: gateways[acc.Name],
			Log:     logger.NewChildLog(cfg.Log.ChildDir, acc.Name),
		})
	}

	engCfg := engine.Config{
		PollInterval:    cfg.Engine.PollInterval,
		FreshnessWindow: cfg.Engine.FreshnessWindow,
	}
	newEngine := func() *engine.Engine {
		return engine.New(engCfg, gateways[dir.Master.Name], children, log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Dashboard.Enabled {
		// With the dashboard up, replication waits for the toggle.
		srv := dashboard.New(cfg.Dashboard.Addr, cfg.Engine.PollInterval, dir, gateways, newEngine, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.WithError(err).Fatal("Dashboard server failed.")
			}
		}()
	} else {
		go newEngine().Run(ctx)
	}

	<-sigCh
	cancel()
	log.Info("Copy trader stopped.")
}

func printAccounts(dir *accounts.Directory) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Client ID", "Role", "Multiplier")
	table.Append(dir.Master.Name, dir.Master.ClientID, string(dir.Master.Role), "-")
	for _, child := range dir.Children {
		table.Append(child.Name, child.ClientID, string(child.Role), fmt.Sprintf("%g", child.Multiplier))
	}
	table.Render()
}
