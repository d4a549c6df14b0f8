package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/deep60/nexus-security/apiconfig"
	"github.com/deep60/nexus-security/internal/consensus"
	"github.com/deep60/nexus-security/internal/dispute"
	"github.com/deep60/nexus-security/internal/events"
	"github.com/deep60/nexus-security/internal/payments"
	"github.com/deep60/nexus-security/internal/reputation"
	"github.com/deep60/nexus-security/internal/settlement"
	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/store"
	"github.com/deep60/nexus-security/types"
)

func main() {
	config, err := apiconfig.ReadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logging.Init(parseLogLevel(config.LogLevel))

	stores, closeStore, err := openStores(config)
	if err != nil {
		logging.Error("Failed to open store", types.Storage, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher, closePublisher := newPublisher(config)
	defer closePublisher()

	// The dispute resolver is driven by external requests; the daemon only
	// runs the background loops. It is constructed here so misconfiguration
	// surfaces at startup rather than on the first dispute.
	_ = dispute.NewResolver(
		stores.bounties, stores.submissions, stores.reputations,
		stores.payouts, stores.disputes, publisher, config.Params,
	)

	worker := consensus.NewWorker(
		stores.bounties, stores.submissions, stores.reputations,
		stores.payouts, publisher, config.Params,
	)
	processor := settlement.NewProcessor(stores.payouts, payments.NewLocalExecutor(), config.Params.Settlement)
	decay := reputation.NewDecayWorker(stores.reputations, config.Params.Reputation)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info("Starting consensus daemon", types.Consensus,
		"tickInterval", config.Params.Consensus.TickInterval,
		"processInterval", config.Params.Settlement.ProcessInterval)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		decay.Start(ctx)
	}()

	<-ctx.Done()
	logging.Info("Shutting down", types.Consensus)
	wg.Wait()
}

type storeSet struct {
	bounties    types.BountyStore
	submissions types.SubmissionStore
	reputations types.ReputationStore
	payouts     types.PayoutStore
	disputes    types.DisputeStore
}

func openStores(config apiconfig.Config) (storeSet, func(), error) {
	if config.Store.InMemory {
		mem := store.NewMemoryStore()
		return storeSet{mem, mem, mem, mem, mem}, func() {}, nil
	}
	db, err := store.OpenBadger(config.Store.Path)
	if err != nil {
		return storeSet{}, nil, err
	}
	closer := func() {
		if err := db.Close(); err != nil {
			logging.Error("Failed to close store", types.Storage, "error", err)
		}
	}
	return storeSet{db, db, db, db, db}, closer, nil
}

func newPublisher(config apiconfig.Config) (types.EventPublisher, func()) {
	if !config.Nats.Enabled {
		return events.NoopPublisher{}, func() {}
	}
	conn, err := events.ConnectToNats(config.Nats.Host, config.Nats.Port, config.Nats.ClientName)
	if err != nil {
		logging.Error("Failed to connect to NATS, events disabled", types.EventProcessing, "error", err)
		return events.NoopPublisher{}, func() {}
	}
	return events.NewNatsPublisher(conn), conn.Close
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
