package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/satoshi/internal/entity"
)

type TradeHistoryRepository struct {
	db *sqlx.DB
}

func NewTradeHistoryRepository(db *sqlx.DB) *TradeHistoryRepository {
	return &TradeHistoryRepository{db: db}
}

func (r *TradeHistoryRepository) Create(ctx context.Context, tradeHistory *entity.TradeHistory) error {
	query, args, err := buildCreateTradeHistoryQuery(tradeHistory)
	if err != nil {
		return err
	}

	var id string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		return err
	}

	tradeHistory.ID = id

	return nil
}

func buildCreateTradeHistoryQuery(tradeHistory *entity.TradeHistory) (string, []any, error) {
	return sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(tradeHistory.TableName()).
		Columns(
			"run_id",
			"order_id",
			"order_execution_id",
			"coin",
			"currency",
			"order_type",
			"price_per_unit",
			"cost",
			"fee_rate_percent",
			"fee",
			"quantity",
			"traded_at",
			"created_at",
		).
		Values(
			tradeHistory.RunID,
			tradeHistory.OrderID,
			tradeHistory.OrderExecutionID,
			tradeHistory.Coin,
			tradeHistory.Currency,
			tradeHistory.OrderType,
			tradeHistory.PricePerUnit,
			tradeHistory.Cost,
			tradeHistory.FeeRatePercent,
			tradeHistory.Fee,
			tradeHistory.Quantity,
			tradeHistory.TradedAt,
			tradeHistory.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
}
