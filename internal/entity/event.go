package entity

import (
	"context"
	"time"
)

type TradeRecordEvent struct {
	RunID      string      `json:"run_id"`
	Exchange   string      `json:"exchange"`
	Pair       string      `json:"pair"`
	Record     TradeRecord `json:"record"`
	RecordedAt time.Time   `json:"recorded_at"`
}

type TradePublisher interface {
	PublishTrade(ctx context.Context, event TradeRecordEvent) error
}
