package engine

import (
	"context"
	"fmt"
	"time"

	"copytrader/internal/accounts"
	"copytrader/internal/broker"
	"copytrader/internal/logger"
)

type Config struct {
	PollInterval    time.Duration
	FreshnessWindow time.Duration
}

// Child is one replication target: its credentials row, its own long-lived
// gateway client and its append-only log.
type Child struct {
	Account accounts.Account
	Gateway broker.Gateway
	Log     *logger.ChildLog
}

// Engine mirrors master-account order activity onto the child accounts.
// All replication state (dedup ledger, replica mapping) lives on the
// instance; it is built when the loop starts and discarded with it.
type Engine struct {
	cfg      Config
	master   broker.Gateway
	children []Child
	log      *logger.Logger

	ledger *Ledger
	mapper *Mapper

	// now is swapped out in tests to pin the freshness window.
	now func() time.Time
}

func New(cfg Config, master broker.Gateway, children []Child, log *logger.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 5 * time.Second
	}
	return &Engine{
		cfg:      cfg,
		master:   master,
		children: children,
		log:      log,
		ledger:   NewLedger(),
		mapper:   NewMapper(),
		now:      time.Now,
	}
}

// SyncOnce runs one polling cycle: fetch the master order list and
// classify-and-dispatch every order. A fetch failure aborts the cycle;
// per-order and per-child failures are contained inside the dispatch.
func (e *Engine) SyncOnce(ctx context.Context) error {
	orders, err := e.master.Orders(ctx)
	if err != nil {
		return fmt.Errorf("fetch master orders: %w", err)
	}
	for _, order := range orders {
		e.processOrder(ctx, order)
	}
	return nil
}

// Run drives SyncOnce until ctx is cancelled. A failed cycle is logged and
// the loop moves on; nothing short of cancellation stops it. Shutdown is
// honored at the cycle boundary only, so per-child calls already in flight
// run to completion.
func (e *Engine) Run(ctx context.Context) {
	e.logEntry().WithFields(map[string]interface{}{
		"children": len(e.children),
		"interval": e.cfg.PollInterval.String(),
		"window":   e.cfg.FreshnessWindow.String(),
	}).Info("Order synchronization loop started.")

	for {
		if err := e.SyncOnce(context.WithoutCancel(ctx)); err != nil {
			e.logEntry().WithError(err).Warn("Sync cycle failed, continuing.")
		}
		select {
		case <-ctx.Done():
			e.logEntry().Info("Order synchronization loop stopped.")
			return
		case <-time.After(e.cfg.PollInterval):
		}
	}
}
