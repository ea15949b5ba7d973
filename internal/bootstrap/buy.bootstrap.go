package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/krobus00/satoshi/internal/config"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/krobus00/satoshi/internal/infrastructure"
	"github.com/krobus00/satoshi/internal/repository"
	"github.com/krobus00/satoshi/internal/service/exchange"
	"github.com/krobus00/satoshi/internal/service/ledger"
	"github.com/krobus00/satoshi/internal/service/orderengine"
	"github.com/krobus00/satoshi/internal/util"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ValidateBuyArgs rejects bad invocations before config is loaded or any call is made.
func ValidateBuyArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(3)(cmd, args); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrUsage, err)
	}

	_, err := parseBuyRequest(args)
	return err
}

func parseBuyRequest(args []string) (entity.OrderRequest, error) {
	cost, err := decimal.NewFromString(strings.TrimSpace(args[2]))
	if err != nil {
		return entity.OrderRequest{}, fmt.Errorf("%w: %w: got %q", entity.ErrUsage, entity.ErrInvalidCost, args[2])
	}

	req := entity.NewMarketBuyOrder(entity.NewTradingPair(args[0], args[1]), cost)
	if err := req.Validate(); err != nil {
		return entity.OrderRequest{}, err
	}

	return req, nil
}

func StartBuy(cmd *cobra.Command, args []string) {
	req, err := parseBuyRequest(args)
	util.ContinueOrFatal(err)

	ctx, stop := signalContext()
	defer stop()

	runID := uuid.NewString()
	logger := logrus.WithFields(logrus.Fields{
		"service": config.ServiceName,
		"run_id":  runID,
	})

	err = runBuy(ctx, cmd.OutOrStdout(), config.Env, runID, req, logger)
	if err != nil {
		logger.WithError(err).Error("buy run failed")
	}
	util.ContinueOrFatal(err)
}

func runBuy(ctx context.Context, out io.Writer, cfg *config.EnvConfig, runID string, req entity.OrderRequest, logger *logrus.Entry) error {
	credentials := cfg.Exchange.Credentials()
	if !credentials.IsComplete() {
		return entity.ErrMissingCredentials
	}

	cleanUpOps := map[string]operation{}
	defer func() {
		cleanUp(cfg.GracefulShutdownTimeout, cleanUpOps)
	}()

	locker, err := newLedgerLocker(ctx, cfg, logger, cleanUpOps)
	if err != nil {
		return err
	}

	ledgerOpts := []ledger.Option{ledger.WithRunID(runID), ledger.WithMirrorTimeout(cfg.Ledger.MirrorTimeout)}
	ledgerOpts = append(ledgerOpts, newTradeHistoryMirror(ctx, cfg, logger, cleanUpOps)...)
	ledgerOpts = append(ledgerOpts, newTradePublisher(ctx, cfg, logger, cleanUpOps)...)

	ledgerService := ledger.NewLedgerService(
		repository.NewTradeLedgerRepository(logger),
		locker,
		logger,
		ledgerOpts...,
	)

	httpClient := infrastructure.NewHTTPClient(infrastructure.HTTPClientConfig{
		Timeout:           cfg.Exchange.RequestTimeout,
		RequestsPerSecond: cfg.Exchange.RequestsPerSecond,
		Logger:            logger,
	})
	mercadoBitcoin := exchange.NewMercadoBitcoinExchange(cfg.Exchange.BaseURL, httpClient, logger)

	orderEngine := orderengine.NewOrderEngineService(mercadoBitcoin, ledgerService, credentials, orderengine.Config{
		PollInterval:    cfg.Order.PollInterval,
		MaxPollAttempts: cfg.Order.MaxPollAttempts,
		MaxPollDuration: cfg.Order.MaxPollDuration,
		LedgerDir:       cfg.Ledger.Dir,
	}, logger)

	result, err := orderEngine.Buy(ctx, req)
	if err != nil {
		return err
	}

	if result.Record == nil {
		logger.WithField("state", result.State).Info("no trade recorded")
		return nil
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "    ")
	return encoder.Encode(result.Record)
}

func newLedgerLocker(ctx context.Context, cfg *config.EnvConfig, logger *logrus.Entry, cleanUpOps map[string]operation) (entity.Locker, error) {
	redisCfg, ok := cfg.Redis[constant.LedgerLockRedis]
	if !ok || strings.TrimSpace(redisCfg.CacheDSN) == "" {
		return ledger.NewFileLocker(cfg.Ledger.LockTimeout, logger), nil
	}

	client, err := infrastructure.NewRedisClient(ctx, redisCfg.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("ledger lock: %w", err)
	}
	cleanUpOps["redis"] = func(context.Context) error {
		return client.Close()
	}

	return ledger.NewRedisLocker(client, cfg.Ledger.LockTimeout, cfg.Ledger.LockTTL, logger), nil
}

func newTradeHistoryMirror(ctx context.Context, cfg *config.EnvConfig, logger *logrus.Entry, cleanUpOps map[string]operation) []ledger.Option {
	dbCfg, ok := cfg.Database[constant.TradeHistoryDatabase]
	if !ok || strings.TrimSpace(dbCfg.DSN) == "" {
		return nil
	}

	db, err := infrastructure.NewPostgresConnection(ctx, dbCfg)
	if err != nil {
		logger.WithError(err).Warn("trade history mirror disabled")
		return nil
	}
	cleanUpOps["postgres"] = func(context.Context) error {
		return db.Close()
	}

	return []ledger.Option{ledger.WithTradeHistory(repository.NewTradeHistoryRepository(db))}
}

func newTradePublisher(ctx context.Context, cfg *config.EnvConfig, logger *logrus.Entry, cleanUpOps map[string]operation) []ledger.Option {
	if strings.TrimSpace(cfg.NatsJetstream.URL) == "" {
		return nil
	}

	nc, js, err := infrastructure.NewJetstream(cfg.NatsJetstream)
	if err != nil {
		logger.WithError(err).Warn("trade events disabled")
		return nil
	}
	cleanUpOps["nats"] = func(context.Context) error {
		return infrastructure.CloseJetstream(nc)
	}

	publisher := ledger.NewJetstreamTradePublisher(js, cfg.NatsJetstream.Subject, logger)
	if err := publisher.JetstreamEventInit(ctx); err != nil {
		logger.WithError(err).Warn("trade events disabled")
		return nil
	}

	return []ledger.Option{ledger.WithTradePublisher(publisher)}
}
