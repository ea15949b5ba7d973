package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/sirupsen/logrus"
)

type MercadoBitcoinExchange struct {
	client *jsonClient
	logger *logrus.Entry
}

func NewMercadoBitcoinExchange(baseURL string, httpClient *http.Client, logger *logrus.Entry) *MercadoBitcoinExchange {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &MercadoBitcoinExchange{
		client: newJSONClient(baseURL, httpClient),
		logger: logger.WithField("exchange", entity.ExchangeMercadoBitcoin),
	}
}

func (e *MercadoBitcoinExchange) Authenticate(ctx context.Context, credentials entity.Credentials) (string, error) {
	if !credentials.IsComplete() {
		return "", fmt.Errorf("%w: %w", entity.ErrAuthFailed, entity.ErrMissingCredentials)
	}

	reqBody := entity.MercadoBitcoinAuthorizeRequest{
		Login:    credentials.ID,
		Password: credentials.Secret,
	}

	status, body, err := e.client.do(ctx, http.MethodPost, "/authorize", nil, "", reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: %w", entity.ErrAuthFailed, statusError(status, body))
	}

	var resp entity.MercadoBitcoinAuthorizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %w: %w", entity.ErrAuthFailed, entity.ErrMalformedResponse, err)
	}

	token := strings.TrimSpace(resp.AccessToken)
	if token == "" {
		return "", fmt.Errorf("%w: %w: access_token is empty", entity.ErrAuthFailed, entity.ErrMalformedResponse)
	}

	e.logger.Debug("access token obtained")

	return token, nil
}

func (e *MercadoBitcoinExchange) GetTicker(ctx context.Context, pair entity.TradingPair) (*entity.Ticker, error) {
	query := url.Values{}
	query.Set("symbols", pair.String())

	status, body, err := e.client.do(ctx, http.MethodGet, "/tickers", query, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrQuoteFailed, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", entity.ErrQuoteFailed, statusError(status, body))
	}

	var tickers []entity.MercadoBitcoinTickerResponse
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", entity.ErrQuoteFailed, entity.ErrMalformedResponse, err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: %w: no ticker returned for %s", entity.ErrQuoteFailed, entity.ErrMalformedResponse, pair)
	}

	selected := tickers[0]
	for _, ticker := range tickers {
		if strings.EqualFold(ticker.Pair, pair.String()) {
			selected = ticker
			break
		}
	}

	return &entity.Ticker{
		Pair:   selected.Pair,
		Last:   selected.Last.Decimal,
		Buy:    selected.Buy.Decimal,
		Sell:   selected.Sell.Decimal,
		High:   selected.High.Decimal,
		Low:    selected.Low.Decimal,
		Open:   selected.Open.Decimal,
		Volume: selected.Vol.Decimal,
		Date:   unixToUTC(selected.Date),
	}, nil
}

// GetAccount resolves the account used for trading. The first account of the
// session is taken, matching single-account API keys.
func (e *MercadoBitcoinExchange) GetAccount(ctx context.Context, token string) (string, []entity.Account, error) {
	status, body, err := e.client.do(ctx, http.MethodGet, "/accounts", nil, token, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", entity.ErrAccountFailed, err)
	}
	if status != http.StatusOK {
		return "", nil, fmt.Errorf("%w: %w", entity.ErrAccountFailed, statusError(status, body))
	}

	var resp []entity.MercadoBitcoinAccountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("%w: %w: %w", entity.ErrAccountFailed, entity.ErrMalformedResponse, err)
	}
	if len(resp) == 0 {
		return "", nil, fmt.Errorf("%w: %w", entity.ErrAccountFailed, entity.ErrNoAccount)
	}

	accounts := make([]entity.Account, 0, len(resp))
	for _, account := range resp {
		accounts = append(accounts, entity.Account{
			ID:           account.ID,
			Name:         account.Name,
			Type:         account.Type,
			Currency:     account.Currency,
			CurrencySign: account.CurrencySign,
		})
	}

	accountID := strings.TrimSpace(accounts[0].ID)
	if accountID == "" {
		return "", nil, fmt.Errorf("%w: %w: account id is empty", entity.ErrAccountFailed, entity.ErrMalformedResponse)
	}

	e.logger.WithField("accounts", len(accounts)).Debug("accounts retrieved")

	return accountID, accounts, nil
}

func (e *MercadoBitcoinExchange) PlaceOrder(ctx context.Context, token string, accountID string, order entity.OrderRequest) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", fmt.Errorf("%w: account id is required", entity.ErrSubmitFailed)
	}

	reqBody := entity.MercadoBitcoinPlaceOrderRequest{
		Type: string(order.Type),
		Side: string(order.Side),
		Cost: json.Number(order.Cost.String()),
	}

	status, body, err := e.client.do(ctx, http.MethodPost, ordersPath(accountID, order.Pair), nil, token, reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrSubmitFailed, err)
	}
	if !isSuccessStatus(status) {
		return "", fmt.Errorf("%w: %w", entity.ErrSubmitFailed, statusError(status, body))
	}

	var resp entity.MercadoBitcoinPlaceOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %w: %w", entity.ErrSubmitFailed, entity.ErrMalformedResponse, err)
	}

	orderID := firstNonBlank(resp.OrderID, resp.SnakeOrderID, resp.ID)
	if orderID == "" {
		return "", fmt.Errorf("%w: %w: order id is missing: body=%s", entity.ErrSubmitFailed, entity.ErrMalformedResponse, string(body))
	}

	e.logger.WithFields(logrus.Fields{
		"pair":     order.Pair.String(),
		"type":     order.Type,
		"side":     order.Side,
		"cost":     order.Cost.String(),
		"order_id": orderID,
		"status":   status,
	}).Info("order placed")

	return orderID, nil
}

func (e *MercadoBitcoinExchange) GetOrder(ctx context.Context, token string, accountID string, pair entity.TradingPair, orderID string) (*entity.OrderDetails, error) {
	path := ordersPath(accountID, pair) + "/" + url.PathEscape(orderID)

	status, body, err := e.client.do(ctx, http.MethodGet, path, nil, token, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrPollFailed, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", entity.ErrPollFailed, statusError(status, body))
	}

	var resp entity.MercadoBitcoinOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", entity.ErrPollFailed, entity.ErrMalformedResponse, err)
	}

	details, err := mapMercadoBitcoinOrder(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrPollFailed, err)
	}

	return details, nil
}

func ordersPath(accountID string, pair entity.TradingPair) string {
	return "/accounts/" + url.PathEscape(strings.TrimSpace(accountID)) + "/" + url.PathEscape(pair.String()) + "/orders"
}

func mapMercadoBitcoinOrder(resp entity.MercadoBitcoinOrderResponse) (*entity.OrderDetails, error) {
	if strings.TrimSpace(resp.ID) == "" {
		return nil, fmt.Errorf("%w: order id is empty", entity.ErrMalformedResponse)
	}
	if strings.TrimSpace(resp.Status) == "" {
		return nil, fmt.Errorf("%w: order status is empty", entity.ErrMalformedResponse)
	}

	executions := make([]entity.Execution, 0, len(resp.Executions))
	for _, execution := range resp.Executions {
		executions = append(executions, entity.Execution{
			ID:         execution.ID,
			Instrument: execution.Instrument,
			Side:       execution.Side,
			Liquidity:  execution.Liquidity,
			Price:      execution.Price.Decimal,
			Qty:        execution.Qty.Decimal,
			FeeRate:    execution.FeeRate.Decimal,
			ExecutedAt: unixToUTC(execution.ExecutedAt),
		})
	}

	return &entity.OrderDetails{
		ID:         resp.ID,
		Instrument: resp.Instrument,
		Status:     entity.ParseOrderStatus(resp.Status),
		RawStatus:  resp.Status,
		Type:       resp.Type,
		Side:       resp.Side,
		AvgPrice:   resp.AvgPrice.Decimal,
		Fee:        resp.Fee.Decimal,
		Quantity:   resp.Qty.Decimal,
		FilledQty:  resp.FilledQty.Decimal,
		Cost:       resp.Cost.Decimal,
		CreatedAt:  unixToUTC(resp.CreatedAt),
		UpdatedAt:  unixToUTC(resp.UpdatedAt),
		Executions: executions,
	}, nil
}

func unixToUTC(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}

	return time.Unix(seconds, 0).UTC()
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}

	return ""
}
