package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/backtester/internal/domain"
)

const (
	defaultRatePerSec = 5
	maxRetries        = 3
	baseRetryWait     = 500 * time.Millisecond
)

// closingsResponse es el payload de GET /closings/{symbol}.
type closingsResponse struct {
	Symbol   string    `json:"symbol"`
	Closings []float64 `json:"closings"`
}

// HTTPClient implementa ports.PriceProvider contra un servicio HTTP de precios,
// con rate limiting y retries.
type HTTPClient struct {
	http      *http.Client
	baseURL   string
	limiter   *rate.Limiter
	retryWait time.Duration
}

// NewHTTPClient crea el cliente. ratePerSec <= 0 usa el default.
func NewHTTPClient(baseURL string, ratePerSec float64) *HTTPClient {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &HTTPClient{
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 1),
		retryWait: baseRetryWait,
	}
}

// FetchClosings implementa ports.PriceProvider.
func (c *HTTPClient) FetchClosings(ctx context.Context, symbol string) ([]float64, error) {
	u := c.baseURL + "/closings/" + url.PathEscape(strings.ToUpper(symbol))

	var resp closingsResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("prices.HTTPClient: %s: %w", symbol, err)
	}
	if len(resp.Closings) == 0 {
		return nil, fmt.Errorf("prices.HTTPClient: %s: no closings: %w", symbol, domain.ErrInsufficientData)
	}
	return resp.Closings, nil
}

// get hace un GET con rate limiting y retries con backoff exponencial.
func (c *HTTPClient) get(ctx context.Context, u string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("price API retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *HTTPClient) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
