package sbanken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnskap/internal/core"
	"regnskap/internal/log"
)

const accountsJSON = `{
  "availableItems": 4,
  "items": [
    {"accountType": "Standard account", "available": 10500.25, "balance": 11000.00},
    {"accountType": "Standard account", "available": 2000, "balance": 2000},
    {"accountType": "Creditcard account", "available": 28000, "balance": -1750.50},
    {"accountType": "High interest account", "available": 50000, "balance": 50000}
  ]
}`

func newServer(t *testing.T, accounts string, accountsStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identityserver/connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("client_id") != "id" || r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(accountsStatus)
		_, _ = w.Write([]byte(accounts))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, id, secret string) *Client {
	return New(Config{
		ClientID:     id,
		ClientSecret: secret,
		AuthURL:      srv.URL + "/",
		AccountsURL:  srv.URL + "/accounts",
		HTTPClient:   srv.Client(),
	}, log.Discard())
}

func TestBalance(t *testing.T) {
	srv := newServer(t, accountsJSON, http.StatusOK)

	got, err := newClient(srv, "id", "secret").Balance(context.Background())
	require.NoError(t, err)

	// 10500.25 + 2000 - 1750.50
	assert.True(t, decimal.RequireFromString("10749.75").Equal(got), "got %s", got)
}

func TestBalanceErrors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
		body   string
		status int
	}{
		{name: "missing credentials", id: "", secret: "", body: accountsJSON, status: http.StatusOK},
		{name: "rejected credentials", id: "id", secret: "wrong", body: accountsJSON, status: http.StatusOK},
		{name: "server error", id: "id", secret: "secret", body: `{"errorMessage":"down"}`, status: http.StatusServiceUnavailable},
		{name: "malformed body", id: "id", secret: "secret", body: `{"items": [`, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.body, tt.status)
			_, err := newClient(srv, tt.id, tt.secret).Balance(context.Background())
			assert.ErrorIs(t, err, core.ErrExternalService)
		})
	}
}

func TestTotalBalance(t *testing.T) {
	assert.True(t, TotalBalance(nil).IsZero())
	got := TotalBalance([]Account{
		{AccountType: "Standard account", Available: decimal.NewFromInt(5), Balance: decimal.NewFromInt(99)},
		{AccountType: "Creditcard account", Available: decimal.NewFromInt(99), Balance: decimal.NewFromInt(-2)},
		{AccountType: "Savings", Available: decimal.NewFromInt(99), Balance: decimal.NewFromInt(99)},
	})
	assert.True(t, decimal.NewFromInt(3).Equal(got))
}
