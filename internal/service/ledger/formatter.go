package ledger

import (
	"fmt"
	"strings"

	"github.com/krobus00/satoshi/internal/entity"
)

// FormatTradeRecord derives the ledger entry for a filled order from its first execution.
func FormatTradeRecord(order entity.OrderDetails) (entity.TradeRecord, error) {
	if len(order.Executions) == 0 {
		return entity.TradeRecord{}, fmt.Errorf("%w: order %s has no executions", entity.ErrDataIntegrity, order.ID)
	}

	pair, err := entity.ParseTradingPair(order.Instrument)
	if err != nil {
		return entity.TradeRecord{}, err
	}

	if order.CreatedAt.IsZero() {
		return entity.TradeRecord{}, fmt.Errorf("%w: order %s has no created_at", entity.ErrDataIntegrity, order.ID)
	}

	execution := order.Executions[0]

	cost := order.Cost
	if cost.IsZero() {
		cost = order.AvgPrice.Mul(order.FilledQty)
	}

	return entity.TradeRecord{
		Date:             order.CreatedAt.UTC().Format(entity.TradeRecordDateLayout),
		OrderID:          order.ID,
		OrderExecutionID: execution.ID,
		Coin:             pair.Base,
		OrderType:        strings.ToLower(order.Type),
		PricePerUnit:     order.AvgPrice.StringFixed(entity.PricePerUnitPrecision),
		Currency:         pair.Quote,
		Cost:             cost.StringFixed(entity.CostPrecision),
		FeeRatePercent:   execution.FeeRate.StringFixed(entity.FeeRatePercentPrecision),
		Fee:              order.Fee.StringFixed(entity.FeePrecision),
		Quantity:         order.FilledQty.StringFixed(entity.QuantityPrecision),
	}, nil
}
