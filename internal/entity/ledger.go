package entity

import "context"

type TradeLedger interface {
	AppendTradeRecord(ctx context.Context, coin string, currency string, record TradeRecord, dir string) error
}

// Locker serializes read-modify-write cycles on a ledger file across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
