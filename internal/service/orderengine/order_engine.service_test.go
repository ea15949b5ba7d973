package orderengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/krobus00/satoshi/internal/repository"
	"github.com/krobus00/satoshi/internal/service/ledger"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	authErr    error
	tickerErr  error
	accountErr error
	placeErr   error
	orderID    string
	polls      []pollResponse

	authCalls   int
	tickerCalls int
	placeCalls  int
	pollCalls   int
	placed      []entity.OrderRequest
}

type pollResponse struct {
	order *entity.OrderDetails
	err   error
}

func (f *fakeExchange) Authenticate(context.Context, entity.Credentials) (string, error) {
	f.authCalls++
	if f.authErr != nil {
		return "", f.authErr
	}
	return "tok", nil
}

func (f *fakeExchange) GetTicker(_ context.Context, pair entity.TradingPair) (*entity.Ticker, error) {
	f.tickerCalls++
	if f.tickerErr != nil {
		return nil, f.tickerErr
	}
	return &entity.Ticker{Pair: pair.String(), Last: decimal.NewFromInt(350000)}, nil
}

func (f *fakeExchange) GetAccount(context.Context, string) (string, []entity.Account, error) {
	if f.accountErr != nil {
		return "", nil, f.accountErr
	}
	return "acc-1", []entity.Account{{ID: "acc-1"}}, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, _ string, _ string, order entity.OrderRequest) (string, error) {
	f.placeCalls++
	f.placed = append(f.placed, order)
	if f.placeErr != nil {
		return "", f.placeErr
	}
	return f.orderID, nil
}

func (f *fakeExchange) GetOrder(context.Context, string, string, entity.TradingPair, string) (*entity.OrderDetails, error) {
	idx := f.pollCalls
	f.pollCalls++
	if idx >= len(f.polls) {
		idx = len(f.polls) - 1
	}
	return f.polls[idx].order, f.polls[idx].err
}

func (f *fakeExchange) networkCalls() int {
	return f.authCalls + f.tickerCalls + f.placeCalls + f.pollCalls
}

type fakeLedger struct {
	records []entity.TradeRecord
	err     error
}

func (f *fakeLedger) AppendTradeRecord(_ context.Context, _ string, _ string, record entity.TradeRecord, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func pendingOrder(status string) pollResponse {
	return pollResponse{order: &entity.OrderDetails{
		ID:         "o1",
		Instrument: "BTC-BRL",
		Status:     entity.ParseOrderStatus(status),
		RawStatus:  status,
	}}
}

func filledOrder() pollResponse {
	return pollResponse{order: &entity.OrderDetails{
		ID:         "o1",
		Instrument: "BTC-BRL",
		Status:     entity.OrderStatusFilled,
		RawStatus:  "filled",
		Type:       "market",
		Side:       "buy",
		AvgPrice:   decimal.RequireFromString("350000"),
		Fee:        decimal.RequireFromString("0.0000014285"),
		FilledQty:  decimal.RequireFromString("0.00028571"),
		Cost:       decimal.NewFromInt(100),
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
		Executions: []entity.Execution{{ID: "e1", FeeRate: decimal.RequireFromString("0.5")}},
	}}
}

func newTestEngine(ex entity.Exchange, tradeLedger entity.TradeLedger, cfg Config) *OrderEngineService {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	return NewOrderEngineService(ex, tradeLedger, entity.Credentials{ID: "id", Secret: "secret"}, cfg, discardLogger())
}

func buyRequest(cost string) entity.OrderRequest {
	return entity.NewMarketBuyOrder(entity.NewTradingPair("BTC", "BRL"), decimal.RequireFromString(cost))
}

func TestBuyFilledAfterProcessingAppendsRecord(t *testing.T) {
	dir := t.TempDir()
	logger := discardLogger()
	tradeLedger := ledger.NewLedgerService(
		repository.NewTradeLedgerRepository(logger),
		ledger.NewFileLocker(time.Second, logger),
		logger,
	)
	ex := &fakeExchange{
		orderID: "o1",
		polls:   []pollResponse{pendingOrder("processing"), filledOrder()},
	}

	engine := newTestEngine(ex, tradeLedger, Config{LedgerDir: dir})

	result, err := engine.Buy(context.Background(), buyRequest("100"))
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.Equal(t, entity.OrderStateFilled, result.State)
	assert.Equal(t, "o1", result.Record.OrderID)
	assert.Equal(t, "e1", result.Record.OrderExecutionID)
	assert.Equal(t, "0.50", result.Record.FeeRatePercent)
	assert.Equal(t, 2, ex.pollCalls)
	require.Len(t, ex.placed, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(ex.placed[0].Cost))

	raw, err := os.ReadFile(filepath.Join(dir, "BTC-BRL-orders.json"))
	require.NoError(t, err)

	var records []entity.TradeRecord
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "o1", records[0].OrderID)
	assert.Equal(t, "e1", records[0].OrderExecutionID)
	assert.Equal(t, "0.50", records[0].FeeRatePercent)
	assert.Equal(t, "0.00000143", records[0].Fee)
	assert.Equal(t, "0.00028571", records[0].Quantity)
	assert.Equal(t, "350000.00", records[0].PricePerUnit)
}

func TestBuyInvalidCostMakesNoNetworkCall(t *testing.T) {
	for _, cost := range []string{"-5", "0"} {
		t.Run(cost, func(t *testing.T) {
			ex := &fakeExchange{}
			engine := newTestEngine(ex, &fakeLedger{}, Config{})

			result, err := engine.Buy(context.Background(), buyRequest(cost))
			assert.Nil(t, result)
			assert.ErrorIs(t, err, entity.ErrUsage)
			assert.ErrorIs(t, err, entity.ErrInvalidCost)
			assert.Zero(t, ex.networkCalls())
		})
	}
}

func TestBuyAuthFailureHaltsBeforeOrder(t *testing.T) {
	ex := &fakeExchange{authErr: fmt.Errorf("%w: %w", entity.ErrAuthFailed, &entity.APIError{StatusCode: 401})}
	engine := newTestEngine(ex, &fakeLedger{}, Config{})

	result, err := engine.Buy(context.Background(), buyRequest("100"))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, entity.ErrAuthFailed)
	assert.Zero(t, ex.tickerCalls)
	assert.Zero(t, ex.placeCalls)
	assert.Zero(t, ex.pollCalls)
}

func TestBuyQuoteFailureAbortsBeforeSubmit(t *testing.T) {
	ex := &fakeExchange{tickerErr: entity.ErrQuoteFailed}
	engine := newTestEngine(ex, &fakeLedger{}, Config{})

	_, err := engine.Buy(context.Background(), buyRequest("100"))
	assert.ErrorIs(t, err, entity.ErrQuoteFailed)
	assert.Zero(t, ex.placeCalls)
}

func TestBuyAccountFailureAbortsBeforeSubmit(t *testing.T) {
	ex := &fakeExchange{accountErr: fmt.Errorf("%w: %w", entity.ErrAccountFailed, entity.ErrNoAccount)}
	engine := newTestEngine(ex, &fakeLedger{}, Config{})

	_, err := engine.Buy(context.Background(), buyRequest("100"))
	assert.ErrorIs(t, err, entity.ErrNoAccount)
	assert.Zero(t, ex.placeCalls)
}

func TestBuySubmitFailureIsNotRetried(t *testing.T) {
	ex := &fakeExchange{placeErr: entity.ErrSubmitFailed}
	tradeLedger := &fakeLedger{}
	engine := newTestEngine(ex, tradeLedger, Config{})

	result, err := engine.Buy(context.Background(), buyRequest("100"))
	assert.ErrorIs(t, err, entity.ErrSubmitFailed)
	require.NotNil(t, result)
	assert.Equal(t, entity.OrderStateAborted, result.State)
	assert.Equal(t, 1, ex.placeCalls)
	assert.Zero(t, ex.pollCalls)
	assert.Empty(t, tradeLedger.records)
}

func TestBuyCanceledIsNotAnError(t *testing.T) {
	ex := &fakeExchange{
		orderID: "o1",
		polls:   []pollResponse{pendingOrder("working"), pendingOrder("cancelled")},
	}
	tradeLedger := &fakeLedger{}
	engine := newTestEngine(ex, tradeLedger, Config{})

	result, err := engine.Buy(context.Background(), buyRequest("100"))
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStateCanceled, result.State)
	assert.Nil(t, result.Record)
	assert.Empty(t, tradeLedger.records)
}

func TestBuyFilledWithoutExecutionsIsDataIntegrityError(t *testing.T) {
	filled := filledOrder()
	filled.order.Executions = nil

	ex := &fakeExchange{orderID: "o1", polls: []pollResponse{filled}}
	tradeLedger := &fakeLedger{}
	engine := newTestEngine(ex, tradeLedger, Config{})

	result, err := engine.Buy(context.Background(), buyRequest("100"))
	assert.ErrorIs(t, err, entity.ErrDataIntegrity)
	require.NotNil(t, result)
	assert.Nil(t, result.Record)
	assert.Empty(t, tradeLedger.records)
}

func TestBuyPersistenceFailureKeepsFill(t *testing.T) {
	ex := &fakeExchange{orderID: "o1", polls: []pollResponse{filledOrder()}}
	tradeLedger := &fakeLedger{err: fmt.Errorf("%w: disk full", entity.ErrPersistence)}
	engine := newTestEngine(ex, tradeLedger, Config{})

	result, err := engine.Buy(context.Background(), buyRequest("100"))
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStateFilled, result.State)
	require.NotNil(t, result.Record)
	assert.Equal(t, "o1", result.Record.OrderID)
}

func TestPollOrderKeepsPollingPendingStatuses(t *testing.T) {
	ex := &fakeExchange{polls: []pollResponse{
		pendingOrder("created"),
		pendingOrder("working"),
		pendingOrder("processing"),
		pendingOrder("working"),
		filledOrder(),
	}}
	engine := newTestEngine(ex, &fakeLedger{}, Config{})

	order, err := engine.PollOrder(context.Background(), "tok", "acc-1", entity.NewTradingPair("BTC", "BRL"), "o1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusFilled, order.Status)
	assert.Equal(t, 5, ex.pollCalls)
}

func TestPollOrderStopsOnTransportError(t *testing.T) {
	ex := &fakeExchange{polls: []pollResponse{
		pendingOrder("working"),
		{err: fmt.Errorf("%w: connection reset", entity.ErrPollFailed)},
		filledOrder(),
	}}
	engine := newTestEngine(ex, &fakeLedger{}, Config{})

	_, err := engine.PollOrder(context.Background(), "tok", "acc-1", entity.NewTradingPair("BTC", "BRL"), "o1")
	assert.ErrorIs(t, err, entity.ErrPollFailed)
	assert.Equal(t, 2, ex.pollCalls)
}

func TestPollOrderMaxAttempts(t *testing.T) {
	ex := &fakeExchange{polls: []pollResponse{pendingOrder("working")}}
	engine := newTestEngine(ex, &fakeLedger{}, Config{MaxPollAttempts: 3})

	_, err := engine.PollOrder(context.Background(), "tok", "acc-1", entity.NewTradingPair("BTC", "BRL"), "o1")
	assert.ErrorIs(t, err, entity.ErrPollTimeout)
	assert.Equal(t, 3, ex.pollCalls)
}

func TestPollOrderMaxDuration(t *testing.T) {
	ex := &fakeExchange{polls: []pollResponse{pendingOrder("working")}}
	engine := newTestEngine(ex, &fakeLedger{}, Config{
		PollInterval:    10 * time.Millisecond,
		MaxPollDuration: 50 * time.Millisecond,
	})

	_, err := engine.PollOrder(context.Background(), "tok", "acc-1", entity.NewTradingPair("BTC", "BRL"), "o1")
	assert.ErrorIs(t, err, entity.ErrPollTimeout)
	assert.GreaterOrEqual(t, ex.pollCalls, 2)
}

func TestPollOrderContextCanceled(t *testing.T) {
	ex := &fakeExchange{polls: []pollResponse{pendingOrder("working")}}
	engine := newTestEngine(ex, &fakeLedger{}, Config{PollInterval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := engine.PollOrder(ctx, "tok", "acc-1", entity.NewTradingPair("BTC", "BRL"), "o1")
	assert.ErrorIs(t, err, entity.ErrPollFailed)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, ex.pollCalls)
}
