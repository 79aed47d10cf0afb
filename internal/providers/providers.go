// Package providers wraps the external balance and exchange-rate services.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"regnskap/internal/cache"
	"regnskap/internal/core"
	"regnskap/internal/log"
)

// maxBody caps how much of an error response is quoted back.
const maxBody = 512

// RateProvider is anything that can price one holdings unit.
type RateProvider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// CachedRate serves the last successful rate until it expires. Failures are
// never cached.
type CachedRate struct {
	next   RateProvider
	cache  cache.Cache[decimal.Decimal]
	key    string
	logger *log.Logger
}

// NewCachedRate wraps next with c, storing the rate under key.
func NewCachedRate(next RateProvider, c cache.Cache[decimal.Decimal], key string, logger *log.Logger) *CachedRate {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CachedRate{next: next, cache: c, key: key, logger: logger.WithComponent(log.ComponentCache)}
}

// Rate implements RateProvider.
func (c *CachedRate) Rate(ctx context.Context) (decimal.Decimal, error) {
	if rate, ok := c.cache.Get(c.key); ok {
		c.logger.Debug("Exchange rate served from cache", log.FieldProvider, c.key, log.FieldAmount, rate.String())
		return rate, nil
	}
	rate, err := c.next.Rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.Set(c.key, rate)
	return rate, nil
}

// CheckResponse turns a non-2xx response into an ErrExternalService error
// quoting the start of the body.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return fmt.Errorf("%w: %s %s: status %d: %s",
		core.ErrExternalService, resp.Request.Method, resp.Request.URL.Redacted(), resp.StatusCode, body)
}
