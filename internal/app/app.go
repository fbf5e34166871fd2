// Package app wires repositories, the ledger, payment settlement, and the
// door scanner into one object graph shared by the server and the tools.
package app

import (
	"fmt"

	"ticketing/internal/checkin"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/notifications"
	"ticketing/internal/orders"
	"ticketing/internal/processor"
	"ticketing/internal/reconciler"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/signer"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/internal/users"
	"ticketing/internal/webhooks"
	"ticketing/pkg/cache"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"
)

type App struct {
	Config    *config.Config
	DB        *database.DB
	Log       *logger.Logger
	Clock     clock.Clock
	Publisher notifications.Publisher

	Events      events.Service
	Tiers       tiers.Service
	Ledger      *holds.Ledger
	Tickets     tickets.Service
	Coordinator *orders.Coordinator
	Settler     *orders.Settler
	Webhooks    *webhooks.Handler
	Scanner     *checkin.Scanner
	Reconciler  *reconciler.Reconciler
}

// New builds the engine on top of open connections. The caller owns db;
// Close only releases what New created.
func New(cfg *config.Config, db *database.DB, log *logger.Logger) (*App, error) {
	s, err := signer.New(cfg.Tickets.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("ticket signer: %w", err)
	}

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	pg := db.GetPostgreSQL()
	clk := clock.NewSystem()
	tx := db.Transactor(cfg.Database.LockTimeout)
	pay := processor.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)

	eventRepo := events.NewRepository(pg)
	tierRepo := tiers.NewRepository(pg)
	holdRepo := holds.NewRepository(pg)
	ticketRepo := tickets.NewRepository(pg)
	orderRepo := orders.NewRepository(pg)

	a := &App{
		Config:    cfg,
		DB:        db,
		Log:       log,
		Clock:     clk,
		Publisher: publisher,
	}

	a.Events = events.NewService(eventRepo, clk, log)
	a.Tiers = tiers.NewService(tierRepo, eventRepo, log)
	if rdb := db.GetRedisClient(); rdb != nil {
		catalogCache := cache.NewService(rdb, log)
		a.Events.SetCacheService(catalogCache)
		a.Tiers.SetCacheService(catalogCache)
	}

	a.Ledger = holds.NewLedger(tx, holdRepo, tierRepo, clk, cfg.Inventory.HoldTTL, log)
	a.Tickets = tickets.NewService(ticketRepo, clk, log)

	deps := orders.Dependencies{
		Tx:               tx,
		Orders:           orderRepo,
		Ledger:           a.Ledger,
		Tiers:            tierRepo,
		Tickets:          ticketRepo,
		Issuer:           tickets.NewIssuer(ticketRepo, s, clk),
		Processor:        pay,
		Publisher:        publisher,
		Clock:            clk,
		Log:              log,
		ProcessorTimeout: cfg.Timeouts.Processor,
	}
	a.Coordinator = orders.NewCoordinator(deps)
	a.Settler = orders.NewSettler(deps)

	a.Webhooks = webhooks.NewHandler(webhooks.NewRepository(pg), orderRepo, a.Settler, pay, clk, log)
	a.Scanner = checkin.NewScanner(tx, checkin.NewRepository(pg), ticketRepo, users.NewRepository(pg), s, publisher, clk, log)
	a.Reconciler = reconciler.New(orderRepo, a.Settler, pay, a.Ledger, a.Tickets, clk, log, reconciler.Config{
		StaleOrderAfter:  cfg.Reconciler.StaleOrderAfter,
		BatchSize:        cfg.Reconciler.BatchSize,
		ProcessorTimeout: cfg.Timeouts.Processor,
	})
	return a, nil
}

func (a *App) Close() error {
	return a.Publisher.Close()
}

func newPublisher(cfg *config.Config, log *logger.Logger) (notifications.Publisher, error) {
	if !cfg.Kafka.Enabled {
		log.Info("Kafka disabled, lifecycle events will not be published")
		return notifications.NopPublisher{}, nil
	}
	kafkaCfg := notifications.DefaultKafkaProducerConfig()
	kafkaCfg.Brokers = cfg.Kafka.Brokers
	kafkaCfg.Topic = cfg.Kafka.Topic
	publisher, err := notifications.NewKafkaPublisher(kafkaCfg, log)
	if err != nil {
		return nil, fmt.Errorf("lifecycle publisher: %w", err)
	}
	return publisher, nil
}
