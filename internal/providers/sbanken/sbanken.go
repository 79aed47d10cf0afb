// Package sbanken reads the total balance from the Sbanken accounts API.
package sbanken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/providers"
)

const (
	tokenPath = "/identityserver/connect/token"

	standardAccount   = "Standard account"
	creditcardAccount = "Creditcard account"
)

// Config holds the credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	AccountsURL  string
	// HTTPClient is used for both the token and the accounts call. Optional.
	HTTPClient *http.Client
}

// Client is a BalanceProvider backed by Sbanken.
type Client struct {
	creds       clientcredentials.Config
	accountsURL string
	httpClient  *http.Client
	logger      *log.Logger
}

// Account is one entry of the accounts listing.
type Account struct {
	AccountType string          `json:"accountType"`
	Available   decimal.Decimal `json:"available"`
	Balance     decimal.Decimal `json:"balance"`
}

type accountsResponse struct {
	Items []Account `json:"items"`
}

// New creates a client. Credentials are checked on each call so a client
// without them still works as a provider that always fails.
func New(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     strings.TrimRight(cfg.AuthURL, "/") + tokenPath,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		accountsURL: cfg.AccountsURL,
		httpClient:  cfg.HTTPClient,
		logger:      logger.WithComponent(log.ComponentProviders),
	}
}

// Balance sums the available amount of standard accounts and the balance of
// credit card accounts. Other account types are ignored.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	if c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return decimal.Zero, fmt.Errorf("%w: sbanken credentials are not configured", core.ErrExternalService)
	}
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	client := c.creds.Client(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.accountsURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build accounts request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: sbanken accounts: %v", core.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if err := providers.CheckResponse(resp); err != nil {
		return decimal.Zero, err
	}

	var body accountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode sbanken accounts: %v", core.ErrExternalService, err)
	}

	total := TotalBalance(body.Items)
	c.logger.Info("Fetched total balance", log.FieldProvider, "sbanken", "accounts", len(body.Items))
	return total, nil
}

// TotalBalance applies the per-account-type rule to accounts.
func TotalBalance(accounts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		switch a.AccountType {
		case standardAccount:
			total = total.Add(a.Available)
		case creditcardAccount:
			total = total.Add(a.Balance)
		}
	}
	return total
}
