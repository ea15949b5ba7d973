package constant

const (
	DevelopmentEnvironment = "development"
	ProductionEnvironment  = "production"
)

const (
	ServiceName = "satoshi"

	MercadoBitcoinBaseURL = "https://api.mercadobitcoin.net/api/v4"

	LedgerFileSuffix = "-orders.json"
	LedgerLockSuffix = ".lock"
	LedgerLockPrefix = "satoshi:ledger-lock:"
)

const (
	TradeStreamName          = "trade"
	TradeStreamSubjectAll    = "trade.*"
	TradeStreamSubjectFilled = "trade.filled"
)

const (
	TradeHistoryDatabase = "trade_history"
	LedgerLockRedis      = "ledger_lock"
)
