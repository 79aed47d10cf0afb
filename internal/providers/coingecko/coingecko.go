// Package coingecko prices milli-bitcoin in NOK through the CoinGecko API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/providers"
)

const (
	coin     = "bitcoin"
	currency = "nok"
)

// unitsPerCoin converts the quoted price per bitcoin to a price per mBTC.
var unitsPerCoin = decimal.NewFromInt(1000)

// Client is an ExchangeRateProvider backed by CoinGecko.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// New creates a client for baseURL, e.g. https://api.coingecko.com/api/v3.
func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.WithComponent(log.ComponentProviders),
	}
}

// Rate returns the NOK price of one milli-bitcoin.
func (c *Client) Rate(ctx context.Context) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", currency)
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: coingecko price: %v", core.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if err := providers.CheckResponse(resp); err != nil {
		return decimal.Zero, err
	}

	var prices map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode coingecko price: %v", core.ErrExternalService, err)
	}
	price, ok := prices[coin][currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: coingecko response has no %s/%s price", core.ErrExternalService, coin, currency)
	}

	rate := price.Div(unitsPerCoin)
	c.logger.Info("Fetched exchange rate", log.FieldProvider, "coingecko", log.FieldAmount, rate.String())
	return rate, nil
}
