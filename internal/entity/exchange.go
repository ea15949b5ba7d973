package entity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeName string

const (
	ExchangeMercadoBitcoin ExchangeName = "mercadobitcoin"
)

type Credentials struct {
	ID     string
	Secret string
}

func (c Credentials) IsComplete() bool {
	return c.ID != "" && c.Secret != ""
}

type Exchange interface {
	Authenticate(ctx context.Context, credentials Credentials) (string, error)
	GetTicker(ctx context.Context, pair TradingPair) (*Ticker, error)
	GetAccount(ctx context.Context, token string) (string, []Account, error)
	PlaceOrder(ctx context.Context, token string, accountID string, order OrderRequest) (string, error)
	GetOrder(ctx context.Context, token string, accountID string, pair TradingPair, orderID string) (*OrderDetails, error)
}

type Ticker struct {
	Pair   string
	Last   decimal.Decimal
	Buy    decimal.Decimal
	Sell   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Open   decimal.Decimal
	Volume decimal.Decimal
	Date   time.Time
}

type Account struct {
	ID           string
	Name         string
	Type         string
	Currency     string
	CurrencySign string
}
