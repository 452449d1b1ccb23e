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
	"trading_journal/pkg/utils"
)

const dateLayout = "2006-01-02"

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
	ErrorMessage string            `json:"error_message"`
}

// fredClient series/observations endpoint
type fredClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// observations ascending points; missing values (".") are skipped.
func (c *fredClient) observations(ctx context.Context, seriesID string, from, to time.Time) ([]models.MacroPoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("series_id", seriesID)
	values.Set("api_key", c.apiKey)
	values.Set("file_type", "json")
	values.Set("observation_start", from.Format(dateLayout))
	values.Set("observation_end", to.Format(dateLayout))
	endpoint := strings.TrimRight(c.baseURL, "/") + "/series/observations?" + values.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(ProviderFRED, "error").Inc()
		return nil, fmt.Errorf("fred %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fred %s read: %w", seriesID, err)
	}
	var parsed fredResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.UpstreamRequests.WithLabelValues(ProviderFRED, "error").Inc()
		return nil, fmt.Errorf("fred %s decode (HTTP %d): %w", seriesID, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues(ProviderFRED, "error").Inc()
		return nil, fmt.Errorf("fred %s HTTP %d: %s", seriesID, resp.StatusCode, parsed.ErrorMessage)
	}
	metrics.UpstreamRequests.WithLabelValues(ProviderFRED, "ok").Inc()

	points := make([]models.MacroPoint, 0, len(parsed.Observations))
	for _, o := range parsed.Observations {
		v := utils.ParseFloatPtr(o.Value)
		if v == nil {
			continue
		}
		points = append(points, models.MacroPoint{Time: o.Date, Value: *v})
	}
	return points, nil
}

// clip keeps points dated within [from, to].
func clip(points []models.MacroPoint, from, to time.Time) []models.MacroPoint {
	lo, hi := from.Format(dateLayout), to.Format(dateLayout)
	out := make([]models.MacroPoint, 0, len(points))
	for _, p := range points {
		if p.Time >= lo && p.Time <= hi {
			out = append(out, p)
		}
	}
	return out
}
