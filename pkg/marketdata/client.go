package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"trading_journal/models"
	"trading_journal/pkg/metrics"
	"trading_journal/pkg/tracing"
)

const providerName = "polygon"

// ErrNotConfigured returned when no API key is set.
var ErrNotConfigured = errors.New("market data provider not configured")

// Options gateway settings; HTTPClient is the transport used for every call.
type Options struct {
	BaseURL        string
	APIKey         string
	MaxRetries     int
	RetryBase      time.Duration
	RequestTimeout time.Duration
	MaxPages       int
	TTLMinute      time.Duration
	TTLHour        time.Duration
	TTLDay         time.Duration
	RateLimit      float64 // requests per second, 0 disables
	HTTPClient     *http.Client
}

func (o *Options) setDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.polygon.io"
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 500 * time.Millisecond
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 10
	}
	if o.TTLMinute <= 0 {
		o.TTLMinute = 2 * time.Minute
	}
	if o.TTLHour <= 0 {
		o.TTLHour = 15 * time.Minute
	}
	if o.TTLDay <= 0 {
		o.TTLDay = 6 * time.Hour
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
}

// Query one aggregate request; From and To are YYYY-MM-DD.
type Query struct {
	Ticker     string
	Multiplier int
	Timespan   string
	From       string
	To         string
}

type aggsResponse struct {
	Status       string          `json:"status"`
	ResultsCount int             `json:"resultsCount"`
	Results      []models.Candle `json:"results"`
	NextURL      string          `json:"next_url"`
}

// Gateway fetches OHLC aggregates through a shared and a local cache tier.
type Gateway struct {
	opts    Options
	limiter *rate.Limiter
	local   *LocalCache
	shared  SharedCache
}

// NewGateway shared may be nil.
func NewGateway(opts Options, shared SharedCache) *Gateway {
	opts.setDefaults()
	g := &Gateway{
		opts:   opts,
		local:  NewLocalCache(),
		shared: shared,
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return g
}

func (g *Gateway) Enabled() bool {
	return g.opts.APIKey != ""
}

// LocalCache exposes the in-process tier for sweeping.
func (g *Gateway) LocalCache() *LocalCache {
	return g.local
}

func (g *Gateway) ttlFor(timespan string) time.Duration {
	switch timespan {
	case models.TimespanMinute:
		return g.opts.TTLMinute
	case models.TimespanHour:
		return g.opts.TTLHour
	default:
		return g.opts.TTLDay
	}
}

func (q Query) params() map[string]string {
	multiplier := q.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return map[string]string{
		"adjusted":   "true",
		"from":       q.From,
		"limit":      "50000",
		"multiplier": strconv.Itoa(multiplier),
		"sort":       "asc",
		"ticker":     q.Ticker,
		"timespan":   q.Timespan,
		"to":         q.To,
	}
}

// FetchAggregates returns ascending candles for q.
func (g *Gateway) FetchAggregates(ctx context.Context, q Query) ([]models.Candle, error) {
	if !g.Enabled() {
		return nil, ErrNotConfigured
	}
	if q.Ticker == "" || q.From == "" || q.To == "" {
		return nil, NewBadRequest("ticker, from and to are required", http.StatusBadRequest)
	}
	if q.Timespan == "" {
		q.Timespan = models.TimespanDay
	}

	ctx, span := tracing.StartSpan(ctx, "marketdata.FetchAggregates",
		attribute.String("ticker", q.Ticker), attribute.String("timespan", q.Timespan))
	defer span.End()

	params := q.params()
	key := CacheKey(q.Timespan, params)
	ttl := g.ttlFor(q.Timespan)

	if g.shared != nil {
		var cached []models.Candle
		if err := g.shared.GetJSON(ctx, key, &cached); err == nil {
			metrics.CacheLookups.WithLabelValues("market", "shared", "hit").Inc()
			g.local.Set(key, cached, ttl)
			return cached, nil
		}
		metrics.CacheLookups.WithLabelValues("market", "shared", "miss").Inc()
	}
	if cached, ok := g.local.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("market", "local", "hit").Inc()
		return cached, nil
	}
	metrics.CacheLookups.WithLabelValues("market", "local", "miss").Inc()

	candles, err := g.fetchAllPages(ctx, q, params)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	g.local.Set(key, candles, ttl)
	if g.shared != nil {
		if err := g.shared.SetJSON(ctx, key, candles, ttl); err != nil {
			logrus.WithError(err).WithField("key", key).Debug("shared cache write failed")
		}
	}
	return candles, nil
}

func (g *Gateway) firstPageURL(q Query, params map[string]string) string {
	path := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%s/%s/%s/%s",
		strings.TrimRight(g.opts.BaseURL, "/"),
		url.PathEscape(q.Ticker), params["multiplier"], url.PathEscape(q.Timespan), q.From, q.To)

	values := url.Values{}
	values.Set("adjusted", params["adjusted"])
	values.Set("sort", params["sort"])
	values.Set("limit", params["limit"])
	values.Set("apiKey", g.opts.APIKey)
	return path + "?" + values.Encode()
}

// withAPIKey forces the credential onto a continuation link.
func (g *Gateway) withAPIKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	values := u.Query()
	values.Set("apiKey", g.opts.APIKey)
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// fetchAllPages follows next_url sequentially up to MaxPages.
func (g *Gateway) fetchAllPages(ctx context.Context, q Query, params map[string]string) ([]models.Candle, error) {
	pageURL := g.firstPageURL(q, params)
	var candles []models.Candle

	for page := 1; page <= g.opts.MaxPages; page++ {
		body, err := g.fetchWithRetry(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		var resp aggsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, NewNetworkError(fmt.Sprintf("decode aggregates: %v", err))
		}
		candles = append(candles, resp.Results...)

		if resp.NextURL == "" {
			return candles, nil
		}
		if page == g.opts.MaxPages {
			logrus.WithFields(logrus.Fields{
				"ticker":   q.Ticker,
				"maxPages": g.opts.MaxPages,
			}).Warn("aggregate pagination capped")
			break
		}
		if pageURL, err = g.withAPIKey(resp.NextURL); err != nil {
			return nil, NewNetworkError(fmt.Sprintf("invalid next_url: %v", err))
		}
	}
	return candles, nil
}

// fetchWithRetry retries timeouts, network errors, 429 and 5xx with
// delay RetryBase*2^(attempt-1).
func (g *Gateway) fetchWithRetry(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxRetries+1; attempt++ {
		body, err := g.doRequest(ctx, pageURL)
		if err == nil {
			metrics.UpstreamRequests.WithLabelValues(providerName, "ok").Inc()
			return body, nil
		}
		lastErr = err
		metrics.UpstreamRequests.WithLabelValues(providerName, errorOutcome(err)).Inc()

		if !IsRetryable(err) || attempt > g.opts.MaxRetries {
			break
		}

		delay := g.opts.RetryBase * time.Duration(1<<(attempt-1))
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Debug("retrying aggregates request")

		select {
		case <-ctx.Done():
			return nil, classifyTransportError(ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (g *Gateway) doRequest(ctx context.Context, pageURL string) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, classifyTransportError(err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, NewBadRequest(fmt.Sprintf("build request: %v", err), http.StatusBadRequest)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, createErrorFromHTTP(HTTPError{
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			URL:        req.URL.Path,
			Body:       string(body),
		})
	}
	return body, nil
}

func errorOutcome(err error) string {
	if typed, ok := err.(Error); ok {
		return strings.ToLower(typed.GetType())
	}
	return "error"
}
