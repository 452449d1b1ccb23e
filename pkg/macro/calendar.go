package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trading_journal/models"
	"trading_journal/pkg/metrics"
)

type calendarEvent struct {
	Actual   *float64 `json:"actual"`
	Country  string   `json:"country"`
	Estimate *float64 `json:"estimate"`
	Event    string   `json:"event"`
	Impact   string   `json:"impact"`
	Prev     *float64 `json:"prev"`
	Time     string   `json:"time"`
	Unit     string   `json:"unit"`
}

type calendarResponse struct {
	EconomicCalendar []calendarEvent `json:"economicCalendar"`
}

// calendarClient Finnhub economic calendar
type calendarClient struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

func (c *calendarClient) events(ctx context.Context, from, to time.Time) ([]models.EconomicEvent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("from", from.Format(dateLayout))
	values.Set("to", to.Format(dateLayout))
	values.Set("token", c.token)
	endpoint := strings.TrimRight(c.baseURL, "/") + "/api/v1/calendar/economic?" + values.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(ProviderFinnhub, "error").Inc()
		return nil, fmt.Errorf("economic calendar: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("economic calendar read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues(ProviderFinnhub, "error").Inc()
		return nil, fmt.Errorf("economic calendar HTTP %d", resp.StatusCode)
	}
	var parsed calendarResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("economic calendar decode: %w", err)
	}
	metrics.UpstreamRequests.WithLabelValues(ProviderFinnhub, "ok").Inc()

	out := make([]models.EconomicEvent, 0, len(parsed.EconomicCalendar))
	for _, e := range parsed.EconomicCalendar {
		out = append(out, models.EconomicEvent{
			Time:     e.Time,
			Country:  e.Country,
			Event:    e.Event,
			Actual:   e.Actual,
			Estimate: e.Estimate,
			Prev:     e.Prev,
			Impact:   e.Impact,
			Unit:     e.Unit,
		})
	}
	return out, nil
}
