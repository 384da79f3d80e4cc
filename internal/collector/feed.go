package collector

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

// APIError is a non-2xx answer from the feed.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// FeedClient implements FeedFetcher against the returns REST endpoint.
type FeedClient struct {
	baseURL      string
	fixedParams  map[string]string
	descriptions map[model.PeriodID]string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewFeedClient creates a feed client with optional proxy support.
func NewFeedClient(cfg config.FeedConfig, proxyURL string, descriptions map[model.PeriodID]string, logger *zap.Logger) *FeedClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for internal endpoints
	}
	if descriptions == nil {
		descriptions = model.DefaultPeriodDescriptions
	}
	return &FeedClient{
		baseURL:      cfg.BaseURL,
		fixedParams:  cfg.FixedParams,
		descriptions: descriptions,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger,
	}
}

func (c *FeedClient) Name() string { return "feed" }

// feedResponse is the expected JSON shape of the returns endpoint.
type feedResponse struct {
	Rentabilidades []feedPoint `json:"Rentabilidades"`
}

type feedPoint struct {
	DataInicial                  string          `json:"DataInicial"`
	DataFinal                    string          `json:"DataFinal"`
	PercentualSobreBenchmark     decimal.Decimal `json:"PercentualSobreBenchmark"`
	PercentualAcumuladoBenchmark decimal.Decimal `json:"PercentualAcumuladoBenchmark"`
	PercentualAcumulado          decimal.Decimal `json:"PercentualAcumulado"`
	NominalAcumulado             decimal.Decimal `json:"NominalAcumulado"`
}

// FetchReturns fetches and flattens the return series of one instrument and
// period. A response without a Rentabilidades list yields no records.
func (c *FeedClient) FetchReturns(ctx context.Context, instrumentID int64, period model.PeriodID) ([]model.FeedRecord, error) {
	query := url.Values{}
	for k, v := range c.fixedParams {
		query.Set(k, v)
	}
	query.Set("Id", strconv.FormatInt(instrumentID, 10))
	query.Set("PeriodoSelecionado", strconv.Itoa(int(period)))

	body, err := c.doWithRetry(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch returns id=%d period=%d: %w", instrumentID, period, err)
	}

	var resp feedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode returns id=%d period=%d: %w", instrumentID, period, err)
	}
	if resp.Rentabilidades == nil {
		c.logger.Warn("feed response has no return list",
			zap.Int64("instrument_id", instrumentID),
			zap.Int("period_id", int(period)),
		)
		return nil, nil
	}

	desc, ok := c.descriptions[period]
	if !ok {
		desc = model.UnknownPeriodDescription
	}
	records := make([]model.FeedRecord, len(resp.Rentabilidades))
	for i, p := range resp.Rentabilidades {
		records[i] = model.FeedRecord{
			InstrumentID:            instrumentID,
			PeriodID:                period,
			PeriodDescription:       desc,
			StartDate:               p.DataInicial,
			EndDate:                 p.DataFinal,
			OverBenchmarkPct:        p.PercentualSobreBenchmark,
			BenchmarkAccumulatedPct: p.PercentualAcumuladoBenchmark,
			AccumulatedPct:          p.PercentualAcumulado,
			NominalAccumulated:      p.NominalAcumulado,
		}
	}
	return records, nil
}

func (c *FeedClient) doRequest(ctx context.Context, query url.Values) ([]byte, error) {
	fullURL := c.baseURL
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}
	return body, nil
}

// doWithRetry retries transport failures and retryable statuses with
// exponential backoff and jitter.
func (c *FeedClient) doWithRetry(ctx context.Context, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff * (0.5 to 1.5)
			wait := backoff
			if backoff > 0 {
				wait = backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			}
			c.logger.Debug("retrying feed request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.String("id", query.Get("Id")),
				zap.String("period", query.Get("PeriodoSelecionado")),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}

		body, err := c.doRequest(ctx, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
