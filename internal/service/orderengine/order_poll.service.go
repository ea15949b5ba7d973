package orderengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/krobus00/satoshi/internal/entity"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

var errOrderPending = errors.New("order is not terminal yet")

func (e *OrderEngineService) pollBackoff() retry.Backoff {
	backoff := retry.NewConstant(e.cfg.PollInterval)
	if e.cfg.MaxPollDuration > 0 {
		backoff = retry.WithMaxDuration(e.cfg.MaxPollDuration, backoff)
	}
	if e.cfg.MaxPollAttempts > 0 {
		backoff = retry.WithMaxRetries(e.cfg.MaxPollAttempts-1, backoff)
	}

	return backoff
}

// PollOrder reads the order status until it is filled or canceled. The first
// read is immediate. A failed read stops polling, a pending status never does
// unless a poll bound is configured.
func (e *OrderEngineService) PollOrder(ctx context.Context, token string, accountID string, pair entity.TradingPair, orderID string) (*entity.OrderDetails, error) {
	logger := e.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"state":    entity.OrderStatePolling,
	})

	attempt := 0
	lastStatus := ""
	order, err := retry.DoValue(ctx, e.pollBackoff(), func(ctx context.Context) (*entity.OrderDetails, error) {
		attempt++

		order, err := e.exchange.GetOrder(ctx, token, accountID, pair, orderID)
		if err != nil {
			return nil, err
		}

		lastStatus = order.RawStatus
		logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"status":  order.RawStatus,
		}).Info("order status")

		if !order.Status.IsTerminal() {
			return nil, retry.RetryableError(errOrderPending)
		}

		return order, nil
	})

	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, errOrderPending):
		return nil, fmt.Errorf("%w: order %s still %q after %d attempts", entity.ErrPollTimeout, orderID, lastStatus, attempt)
	case errors.Is(err, entity.ErrPollFailed):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", entity.ErrPollFailed, err)
	}
}
