package entity

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

const TradeRecordDateLayout = "2006-01-02 15:04"

const (
	PricePerUnitPrecision   = 2
	CostPrecision           = 2
	FeeRatePercentPrecision = 2
	FeePrecision            = 8
	QuantityPrecision       = 8
)

// TradeRecord is one ledger entry. Decimal fields keep their fixed precision as strings.
type TradeRecord struct {
	Date             string `json:"date"`
	OrderID          string `json:"order_id"`
	OrderExecutionID string `json:"order_execution_id"`
	Coin             string `json:"coin"`
	OrderType        string `json:"order_type"`
	PricePerUnit     string `json:"price_per_unit"`
	Currency         string `json:"currency"`
	Cost             string `json:"cost"`
	FeeRatePercent   string `json:"fee_rate_percent"`
	Fee              string `json:"fee"`
	Quantity         string `json:"quantity"`
}

type TradeHistory struct {
	ID               string          `db:"id" json:"id"`
	RunID            null.String     `db:"run_id" json:"run_id"`
	OrderID          string          `db:"order_id" json:"order_id"`
	OrderExecutionID string          `db:"order_execution_id" json:"order_execution_id"`
	Coin             string          `db:"coin" json:"coin"`
	Currency         string          `db:"currency" json:"currency"`
	OrderType        string          `db:"order_type" json:"order_type"`
	PricePerUnit     decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	Cost             decimal.Decimal `db:"cost" json:"cost"`
	FeeRatePercent   decimal.Decimal `db:"fee_rate_percent" json:"fee_rate_percent"`
	Fee              decimal.Decimal `db:"fee" json:"fee"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	TradedAt         time.Time       `db:"traded_at" json:"traded_at"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

func (t TradeHistory) TableName() string {
	return "trade_histories"
}

func NewTradeHistory(runID string, record TradeRecord) (*TradeHistory, error) {
	tradedAt, err := time.ParseInLocation(TradeRecordDateLayout, record.Date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid trade date %q: %w", record.Date, err)
	}

	values := map[string]string{
		"price_per_unit":   record.PricePerUnit,
		"cost":             record.Cost,
		"fee_rate_percent": record.FeeRatePercent,
		"fee":              record.Fee,
		"quantity":         record.Quantity,
	}
	parsed := make(map[string]decimal.Decimal, len(values))
	for field, raw := range values {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", field, raw, err)
		}
		parsed[field] = value
	}

	return &TradeHistory{
		RunID:            null.NewString(runID, runID != ""),
		OrderID:          record.OrderID,
		OrderExecutionID: record.OrderExecutionID,
		Coin:             record.Coin,
		Currency:         record.Currency,
		OrderType:        record.OrderType,
		PricePerUnit:     parsed["price_per_unit"],
		Cost:             parsed["cost"],
		FeeRatePercent:   parsed["fee_rate_percent"],
		Fee:              parsed["fee"],
		Quantity:         parsed["quantity"],
		TradedAt:         tradedAt,
		CreatedAt:        time.Now().UTC(),
	}, nil
}
