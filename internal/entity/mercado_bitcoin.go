package entity

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Amount decodes exchange values sent either as JSON numbers or strings. Blank means zero.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		a.Decimal = decimal.Zero
		return nil
	}

	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(data), err)
	}
	a.Decimal = parsed

	return nil
}

type MercadoBitcoinAuthorizeRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type MercadoBitcoinAuthorizeResponse struct {
	AccessToken string `json:"access_token"`
	Expiration  int64  `json:"expiration"`
}

type MercadoBitcoinTickerResponse struct {
	Pair string `json:"pair"`
	High Amount `json:"high"`
	Low  Amount `json:"low"`
	Vol  Amount `json:"vol"`
	Last Amount `json:"last"`
	Buy  Amount `json:"buy"`
	Sell Amount `json:"sell"`
	Open Amount `json:"open"`
	Date int64  `json:"date"`
}

type MercadoBitcoinAccountResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Currency     string `json:"currency"`
	CurrencySign string `json:"currencySign"`
}

type MercadoBitcoinPlaceOrderRequest struct {
	Type string      `json:"type"`
	Side string      `json:"side"`
	Cost json.Number `json:"cost"`
}

type MercadoBitcoinPlaceOrderResponse struct {
	OrderID      string `json:"orderId"`
	SnakeOrderID string `json:"order_id"`
	ID           string `json:"id"`
}

type MercadoBitcoinOrderResponse struct {
	ID         string                            `json:"id"`
	Instrument string                            `json:"instrument"`
	Status     string                            `json:"status"`
	Type       string                            `json:"type"`
	Side       string                            `json:"side"`
	AvgPrice   Amount                            `json:"avgPrice"`
	Fee        Amount                            `json:"fee"`
	Qty        Amount                            `json:"qty"`
	FilledQty  Amount                            `json:"filledQty"`
	Cost       Amount                            `json:"cost"`
	CreatedAt  int64                             `json:"created_at"`
	UpdatedAt  int64                             `json:"updated_at"`
	Executions []MercadoBitcoinExecutionResponse `json:"executions"`
}

type MercadoBitcoinExecutionResponse struct {
	ID         string `json:"id"`
	Instrument string `json:"instrument"`
	Side       string `json:"side"`
	Liquidity  string `json:"liquidity"`
	Price      Amount `json:"price"`
	Qty        Amount `json:"qty"`
	FeeRate    Amount `json:"fee_rate"`
	ExecutedAt int64  `json:"executed_at"`
}
