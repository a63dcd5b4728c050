package exchange

import (
	"fmt"

	"tradecore/internal/currency"
	"tradecore/internal/exchange/binance"
	"tradecore/internal/exchange/bittrex"
	"tradecore/internal/exchange/huobi"
	"tradecore/internal/exchange/kraken"
	"tradecore/internal/exchange/poloniex"
)

// New builds the Exchange adapter named by tag, authenticated with
// apiKey/secretKey. accountID is only consulted for Huobi, which needs
// an account id on every trading call.
func New(tag currency.Exchange, apiKey, secretKey, accountID string) (Exchange, error) {
	var ex Exchange
	switch tag {
	case currency.Bittrex:
		a := bittrex.New()
		a.SetCredentials(apiKey, secretKey)
		ex = a
	case currency.Binance:
		a := binance.New()
		a.SetCredentials(apiKey, secretKey)
		ex = a
	case currency.Kraken:
		a := kraken.New()
		a.SetCredentials(apiKey, secretKey)
		ex = a
	case currency.Poloniex:
		a := poloniex.New()
		a.SetCredentials(apiKey, secretKey)
		ex = a
	case currency.Huobi:
		a := huobi.New(accountID)
		a.SetCredentials(apiKey, secretKey)
		ex = a
	default:
		return nil, fmt.Errorf("exchange: unknown exchange tag %q", tag.String())
	}
	return ex, nil
}
