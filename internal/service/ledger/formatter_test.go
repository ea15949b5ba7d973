package ledger

import (
	"testing"
	"time"

	"github.com/krobus00/satoshi/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledOrder() entity.OrderDetails {
	return entity.OrderDetails{
		ID:         "o1",
		Instrument: "BTC-BRL",
		Status:     entity.OrderStatusFilled,
		Type:       "market",
		Side:       "buy",
		AvgPrice:   decimal.RequireFromString("350000.125"),
		Fee:        decimal.RequireFromString("0.0000014285"),
		FilledQty:  decimal.RequireFromString("0.000285714"),
		Cost:       decimal.RequireFromString("100"),
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
		Executions: []entity.Execution{
			{ID: "e1", FeeRate: decimal.RequireFromString("0.5")},
			{ID: "e2", FeeRate: decimal.RequireFromString("0.3")},
		},
	}
}

func TestFormatTradeRecord(t *testing.T) {
	record, err := FormatTradeRecord(filledOrder())
	require.NoError(t, err)

	assert.Equal(t, entity.TradeRecord{
		Date:             "2023-11-14 22:13",
		OrderID:          "o1",
		OrderExecutionID: "e1",
		Coin:             "BTC",
		OrderType:        "market",
		PricePerUnit:     "350000.13",
		Currency:         "BRL",
		Cost:             "100.00",
		FeeRatePercent:   "0.50",
		Fee:              "0.00000143",
		Quantity:         "0.00028571",
	}, record)
}

func TestFormatTradeRecordFixedPrecision(t *testing.T) {
	order := filledOrder()
	order.AvgPrice = decimal.NewFromInt(300000)
	order.Fee = decimal.Zero
	order.FilledQty = decimal.RequireFromString("1")

	record, err := FormatTradeRecord(order)
	require.NoError(t, err)

	assert.Equal(t, "300000.00", record.PricePerUnit)
	assert.Equal(t, "0.00000000", record.Fee)
	assert.Equal(t, "1.00000000", record.Quantity)
}

func TestFormatTradeRecordCostFallback(t *testing.T) {
	order := filledOrder()
	order.Cost = decimal.Zero
	order.AvgPrice = decimal.NewFromInt(200)
	order.FilledQty = decimal.RequireFromString("0.5")

	record, err := FormatTradeRecord(order)
	require.NoError(t, err)
	assert.Equal(t, "100.00", record.Cost)
}

func TestFormatTradeRecordRejectsEmptyExecutions(t *testing.T) {
	order := filledOrder()
	order.Executions = nil

	_, err := FormatTradeRecord(order)
	assert.ErrorIs(t, err, entity.ErrDataIntegrity)
}

func TestFormatTradeRecordRejectsBadInstrument(t *testing.T) {
	order := filledOrder()
	order.Instrument = "BTCBRL"

	_, err := FormatTradeRecord(order)
	assert.ErrorIs(t, err, entity.ErrDataIntegrity)
}

func TestFormatTradeRecordRejectsMissingCreatedAt(t *testing.T) {
	order := filledOrder()
	order.CreatedAt = time.Time{}

	_, err := FormatTradeRecord(order)
	assert.ErrorIs(t, err, entity.ErrDataIntegrity)
}
