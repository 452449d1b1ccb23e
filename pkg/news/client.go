package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trading_journal/models"
	"trading_journal/pkg/metrics"
)

const providerName = "newsapi"

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

// client NewsAPI /v2/everything search
type client struct {
	baseURL    string
	apiKey     string
	language   string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

func (c *client) search(ctx context.Context, query string, from, to time.Time, pageSize int) ([]models.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("from", from.UTC().Format(time.RFC3339))
	values.Set("to", to.UTC().Format(time.RFC3339))
	values.Set("language", c.language)
	values.Set("pageSize", strconv.Itoa(pageSize))
	values.Set("sortBy", "publishedAt")
	values.Set("apiKey", c.apiKey)
	endpoint := strings.TrimRight(c.baseURL, "/") + "/v2/everything?" + values.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(providerName, "error").Inc()
		return nil, fmt.Errorf("news request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read news response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.UpstreamRequests.WithLabelValues(providerName, "error").Inc()
		return nil, fmt.Errorf("decode news response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Status == "error" {
		metrics.UpstreamRequests.WithLabelValues(providerName, "error").Inc()
		return nil, fmt.Errorf("news provider HTTP %d: %s %s", resp.StatusCode, parsed.Code, parsed.Message)
	}
	metrics.UpstreamRequests.WithLabelValues(providerName, "ok").Inc()

	items := make([]models.NewsItem, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			continue
		}
		items = append(items, models.NewsItem{
			Time:        published.UTC(),
			Source:      a.Source.Name,
			Title:       cleanText(a.Title),
			URL:         a.URL,
			Description: cleanText(a.Description),
		})
	}
	return items, nil
}
