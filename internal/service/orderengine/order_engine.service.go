package orderengine

import (
	"context"
	"fmt"
	"time"

	"github.com/krobus00/satoshi/internal/entity"
	"github.com/krobus00/satoshi/internal/service/ledger"
	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 5 * time.Second

type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts uint64        // 0 polls until a terminal status
	MaxPollDuration time.Duration // 0 polls until a terminal status
	LedgerDir       string
}

// BuyResult is the outcome of one buy run. Record is only set for a filled order.
type BuyResult struct {
	State   entity.OrderState
	OrderID string
	Order   *entity.OrderDetails
	Record  *entity.TradeRecord
}

type OrderEngineService struct {
	exchange    entity.Exchange
	ledger      entity.TradeLedger
	credentials entity.Credentials
	cfg         Config
	logger      *logrus.Entry
}

func NewOrderEngineService(exchange entity.Exchange, tradeLedger entity.TradeLedger, credentials entity.Credentials, cfg Config, logger *logrus.Entry) *OrderEngineService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &OrderEngineService{
		exchange:    exchange,
		ledger:      tradeLedger,
		credentials: credentials,
		cfg:         cfg,
		logger:      logger,
	}
}

// Buy authenticates, checks the quote, resolves the account, submits a market
// buy and follows it to a terminal status. A fill is appended to the ledger.
func (e *OrderEngineService) Buy(ctx context.Context, req entity.OrderRequest) (*BuyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := e.logger.WithFields(logrus.Fields{
		"pair": req.Pair.String(),
		"cost": req.Cost.String(),
	})

	token, err := e.exchange.Authenticate(ctx, e.credentials)
	if err != nil {
		logger.WithError(err).Error("authentication failed")
		return nil, err
	}

	ticker, err := e.exchange.GetTicker(ctx, req.Pair)
	if err != nil {
		logger.WithError(err).Error("quote unavailable, order not submitted")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"last": ticker.Last.String(),
		"buy":  ticker.Buy.String(),
		"sell": ticker.Sell.String(),
		"high": ticker.High.String(),
		"low":  ticker.Low.String(),
		"vol":  ticker.Volume.String(),
	}).Info("ticker retrieved")

	accountID, accounts, err := e.exchange.GetAccount(ctx, token)
	if err != nil {
		logger.WithError(err).Error("account resolution failed")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"accounts":   len(accounts),
	}).Debug("account resolved")

	orderID, err := e.SubmitOrder(ctx, token, accountID, req)
	if err != nil {
		return &BuyResult{State: entity.OrderStateAborted}, err
	}

	order, err := e.PollOrder(ctx, token, accountID, req.Pair, orderID)
	if err != nil {
		logger.WithField("order_id", orderID).WithError(err).Error("order polling aborted")
		return &BuyResult{State: entity.OrderStateAborted, OrderID: orderID}, err
	}

	logger = logger.WithField("order_id", orderID)

	if order.Status == entity.OrderStatusCanceled {
		logger.WithField("state", entity.OrderStateCanceled).Info("order canceled")
		return &BuyResult{State: entity.OrderStateCanceled, OrderID: orderID, Order: order}, nil
	}

	logger.WithField("state", entity.OrderStateFilled).Info("order filled")

	record, err := ledger.FormatTradeRecord(*order)
	if err != nil {
		logger.WithError(err).Error("filled order cannot be recorded")
		return &BuyResult{State: entity.OrderStateFilled, OrderID: orderID, Order: order}, err
	}

	// the fill already happened, a shutdown signal must not drop the record
	persistCtx := context.WithoutCancel(ctx)
	err = e.ledger.AppendTradeRecord(persistCtx, record.Coin, record.Currency, record, e.cfg.LedgerDir)
	if err != nil {
		logger.WithError(err).Error("trade record was not persisted")
	}

	return &BuyResult{
		State:   entity.OrderStateFilled,
		OrderID: orderID,
		Order:   order,
		Record:  &record,
	}, nil
}

// SubmitOrder places the order once. A failed submission is never retried.
func (e *OrderEngineService) SubmitOrder(ctx context.Context, token string, accountID string, req entity.OrderRequest) (string, error) {
	logger := e.logger.WithFields(logrus.Fields{
		"pair":  req.Pair.String(),
		"state": entity.OrderStateSubmitting,
	})
	logger.Info("submitting order")

	orderID, err := e.exchange.PlaceOrder(ctx, token, accountID, req)
	if err != nil {
		logger.WithField("state", entity.OrderStateAborted).WithError(err).Error("order submission failed")
		return "", fmt.Errorf("submit %s order: %w", req.Pair, err)
	}

	return orderID, nil
}
