package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string
type OrderSide string
type OrderStatus string
type OrderState string

const (
	OrderSideBuy OrderSide = "buy"

	OrderTypeMarket OrderType = "market"

	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"

	OrderStateSubmitting OrderState = "submitting"
	OrderStatePolling    OrderState = "polling"
	OrderStateFilled     OrderState = "filled"
	OrderStateCanceled   OrderState = "canceled"
	OrderStateAborted    OrderState = "aborted"
)

// ParseOrderStatus folds every non-terminal exchange status into pending.
func ParseOrderStatus(raw string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "filled":
		return OrderStatusFilled
	case "canceled", "cancelled":
		return OrderStatusCanceled
	default:
		return OrderStatusPending
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCanceled
}

type OrderRequest struct {
	Pair TradingPair
	Type OrderType
	Side OrderSide
	Cost decimal.Decimal
}

func NewMarketBuyOrder(pair TradingPair, cost decimal.Decimal) OrderRequest {
	return OrderRequest{
		Pair: pair,
		Type: OrderTypeMarket,
		Side: OrderSideBuy,
		Cost: cost,
	}
}

func (r OrderRequest) Validate() error {
	if err := r.Pair.Validate(); err != nil {
		return err
	}
	if !r.Cost.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%w: %w: got %s", ErrUsage, ErrInvalidCost, r.Cost.String())
	}
	if r.Type != OrderTypeMarket || r.Side != OrderSideBuy {
		return fmt.Errorf("%w: only market buy orders are supported, got %s %s", ErrUsage, r.Type, r.Side)
	}

	return nil
}

type OrderDetails struct {
	ID         string
	Instrument string
	Status     OrderStatus
	RawStatus  string
	Type       string
	Side       string
	AvgPrice   decimal.Decimal
	Fee        decimal.Decimal
	Quantity   decimal.Decimal
	FilledQty  decimal.Decimal
	Cost       decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Executions []Execution
}

type Execution struct {
	ID         string
	Instrument string
	Side       string
	Liquidity  string
	Price      decimal.Decimal
	Qty        decimal.Decimal
	FeeRate    decimal.Decimal
	ExecutedAt time.Time
}
