package entity

import (
	"fmt"
	"strings"
)

const PairSeparator = "-"

type TradingPair struct {
	Base  string
	Quote string
}

func NewTradingPair(base, quote string) TradingPair {
	return TradingPair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// ParseTradingPair splits an exchange instrument such as "BTC-BRL".
func ParseTradingPair(instrument string) (TradingPair, error) {
	parts := strings.Split(strings.TrimSpace(instrument), PairSeparator)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return TradingPair{}, fmt.Errorf("%w: invalid instrument %q", ErrDataIntegrity, instrument)
	}

	return NewTradingPair(parts[0], parts[1]), nil
}

func (p TradingPair) String() string {
	return p.Base + PairSeparator + p.Quote
}

func (p TradingPair) Validate() error {
	if p.Base == "" || p.Quote == "" {
		return fmt.Errorf("%w: symbol and currency are required", ErrUsage)
	}
	if strings.Contains(p.Base, PairSeparator) || strings.Contains(p.Quote, PairSeparator) {
		return fmt.Errorf("%w: symbol and currency must not contain %q", ErrUsage, PairSeparator)
	}

	return nil
}
