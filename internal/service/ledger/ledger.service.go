package ledger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/krobus00/satoshi/internal/entity"
	"github.com/krobus00/satoshi/internal/repository"
	"github.com/sirupsen/logrus"
)

type tradeLedgerStore interface {
	Load(path string) ([]entity.TradeRecord, error)
	Save(path string, records []entity.TradeRecord) error
}

type tradeHistoryWriter interface {
	Create(ctx context.Context, tradeHistory *entity.TradeHistory) error
}

const defaultMirrorTimeout = 10 * time.Second

type LedgerService struct {
	store         tradeLedgerStore
	locker        entity.Locker
	history       tradeHistoryWriter
	publisher     entity.TradePublisher
	runID         string
	mirrorTimeout time.Duration
	logger        *logrus.Entry
}

type Option func(*LedgerService)

// WithTradeHistory mirrors every appended record into the trade history table.
func WithTradeHistory(history tradeHistoryWriter) Option {
	return func(s *LedgerService) {
		s.history = history
	}
}

// WithTradePublisher emits a trade event for every appended record.
func WithTradePublisher(publisher entity.TradePublisher) Option {
	return func(s *LedgerService) {
		s.publisher = publisher
	}
}

// WithMirrorTimeout bounds each trade history insert and trade event publish.
func WithMirrorTimeout(timeout time.Duration) Option {
	return func(s *LedgerService) {
		if timeout > 0 {
			s.mirrorTimeout = timeout
		}
	}
}

func WithRunID(runID string) Option {
	return func(s *LedgerService) {
		s.runID = runID
	}
}

func NewLedgerService(store tradeLedgerStore, locker entity.Locker, logger *logrus.Entry, opts ...Option) *LedgerService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &LedgerService{
		store:         store,
		locker:        locker,
		mirrorTimeout: defaultMirrorTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *LedgerService) AppendTradeRecord(ctx context.Context, coin string, currency string, record entity.TradeRecord, dir string) error {
	if dir == "" {
		dir = "."
	}

	path := repository.LedgerFilePath(dir, coin, currency)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create ledger directory: %w", entity.ErrPersistence, err)
	}

	count, err := s.appendLocked(ctx, path, record)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrPersistence, err)
	}

	s.logger.WithFields(logrus.Fields{
		"ledger":   path,
		"order_id": record.OrderID,
		"records":  count,
	}).Info("trade record appended")

	s.mirror(ctx, coin, currency, record)

	return nil
}

func (s *LedgerService) appendLocked(ctx context.Context, path string, record entity.TradeRecord) (int, error) {
	unlock, err := s.locker.Lock(ctx, path)
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, err := s.store.Load(path)
	if err != nil {
		return 0, err
	}

	records = append(records, record)

	if err := s.store.Save(path, records); err != nil {
		return 0, err
	}

	return len(records), nil
}

// mirror copies the record to the optional sinks after the ledger lock is
// released. Each call gets its own deadline and failures are logged only.
func (s *LedgerService) mirror(ctx context.Context, coin string, currency string, record entity.TradeRecord) {
	logger := s.logger.WithField("order_id", record.OrderID)
	ctx = context.WithoutCancel(ctx)

	if s.history != nil {
		tradeHistory, err := entity.NewTradeHistory(s.runID, record)
		if err == nil {
			err = s.createTradeHistory(ctx, tradeHistory)
		}
		if err != nil {
			logger.WithError(err).Warn("failed to mirror trade record to trade history")
		}
	}

	if s.publisher != nil {
		event := entity.TradeRecordEvent{
			RunID:      s.runID,
			Exchange:   string(entity.ExchangeMercadoBitcoin),
			Pair:       entity.NewTradingPair(coin, currency).String(),
			Record:     record,
			RecordedAt: time.Now().UTC(),
		}
		if err := s.publishTrade(ctx, event); err != nil {
			logger.WithError(err).Warn("failed to publish trade event")
		}
	}
}

func (s *LedgerService) createTradeHistory(ctx context.Context, tradeHistory *entity.TradeHistory) error {
	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	return s.history.Create(ctx, tradeHistory)
}

func (s *LedgerService) publishTrade(ctx context.Context, event entity.TradeRecordEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	return s.publisher.PublishTrade(ctx, event)
}
