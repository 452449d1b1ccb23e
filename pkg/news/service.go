package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"trading_journal/models"
	"trading_journal/pkg/metrics"
	dbmodels "trading_journal/pkg/models"
	"trading_journal/pkg/tracing"
	"trading_journal/pkg/utils"
)

// MaxWorkers concurrent symbol fetches
const MaxWorkers = 2

// ArticleStore persistence used for read-through and write-back.
type ArticleStore interface {
	UpsertArticle(ctx context.Context, article *dbmodels.NewsArticle) (uint, error)
	CreateSymbolIndex(ctx context.Context, symbol string, articleID uint, publishedAt time.Time) error
	ArticlesBySymbol(ctx context.Context, symbol string, from, to time.Time, limit int) ([]dbmodels.NewsArticle, error)
}

type Options struct {
	BaseURL        string
	APIKey         string
	Language       string
	PerSymbol      int
	ExtraKeywords  []string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Cache          Cache
	Shared         SharedCache
}

// Engine ranked per-symbol news digests.
type Engine struct {
	opts     Options
	client   *client
	store    ArticleStore
	cache    Cache
	shared   SharedCache
	keywords []string
}

// NewEngine store may be nil.
func NewEngine(opts Options, store ArticleStore) *Engine {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://newsapi.org"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.PerSymbol <= 0 {
		opts.PerSymbol = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache(opts.CacheTTL)
	}

	return &Engine{
		opts: opts,
		client: &client{
			baseURL:    opts.BaseURL,
			apiKey:     opts.APIKey,
			language:   opts.Language,
			timeout:    opts.RequestTimeout,
			httpClient: opts.HTTPClient,
			limiter:    rate.NewLimiter(rate.Limit(2), 2),
		},
		store:    store,
		cache:    cache,
		shared:   opts.Shared,
		keywords: KeywordPool(opts.ExtraKeywords),
	}
}

func (e *Engine) Enabled() bool {
	return e.opts.APIKey != ""
}

func (e *Engine) Cache() Cache {
	return e.cache
}

func (e *Engine) Keywords() []string {
	return e.keywords
}

// Digest up to PerSymbol ranked articles for every distinct symbol.
// An error is returned only when no symbol produced a result.
func (e *Engine) Digest(ctx context.Context, symbols []string, from, to time.Time) (map[string][]models.NewsItem, error) {
	ctx, span := tracing.StartSpan(ctx, "news.Digest", attribute.Int("symbols", len(symbols)))
	defer span.End()

	distinct := distinctBare(symbols)
	out := make(map[string][]models.NewsItem, len(distinct))
	var (
		mu   sync.Mutex
		errs []error
	)

	utils.ForEachLimit(ctx, MaxWorkers, distinct, func(ctx context.Context, symbol string) {
		items, err := e.forSymbol(ctx, symbol, from, to)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			return
		}
		out[symbol] = items
	})

	if len(out) == 0 && len(errs) > 0 {
		err := errors.Join(errs...)
		tracing.RecordError(span, err)
		return out, err
	}
	for _, err := range errs {
		logrus.WithError(err).Warn("news digest degraded")
	}
	return out, nil
}

func (e *Engine) cacheKey(symbol string, from, to time.Time) string {
	return strings.Join([]string{
		symbol,
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
		e.opts.Language,
		strconv.Itoa(e.opts.PerSymbol),
		keywordSignature(e.keywords),
	}, "|")
}

func (e *Engine) forSymbol(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error) {
	limit := e.opts.PerSymbol
	key := e.cacheKey(symbol, from, to)
	if items, ok := e.cache.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("news", "local", "hit").Inc()
		return items, nil
	}
	metrics.CacheLookups.WithLabelValues("news", "local", "miss").Inc()

	if e.shared != nil {
		var items []models.NewsItem
		if err := e.shared.GetJSON(ctx, key, &items); err == nil {
			metrics.CacheLookups.WithLabelValues("news", "shared", "hit").Inc()
			e.cache.Set(key, items)
			return items, nil
		}
		metrics.CacheLookups.WithLabelValues("news", "shared", "miss").Inc()
	}

	var stored []models.NewsItem
	if e.store != nil {
		articles, err := e.store.ArticlesBySymbol(ctx, symbol, from, to, limit)
		if err != nil {
			logrus.WithError(err).WithField("symbol", symbol).Warn("news storage read failed")
		}
		stored = fromArticles(symbol, articles)
		if len(stored) >= limit {
			items := Rank(stored, symbol, e.keywords, from, to, limit)
			e.remember(ctx, key, items)
			return items, nil
		}
	}

	if !e.Enabled() {
		return Rank(stored, symbol, e.keywords, from, to, limit), nil
	}

	pageSize := limit * 4
	if pageSize < 20 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	bySymbol, errSymbol := e.client.search(ctx, symbol, from, to, pageSize)
	byKeyword, errKeyword := e.client.search(ctx, keywordQuery(e.keywords), from, to, pageSize)
	if errSymbol != nil && errKeyword != nil {
		if len(stored) > 0 {
			return Rank(stored, symbol, e.keywords, from, to, limit), nil
		}
		return nil, errors.Join(errSymbol, errKeyword)
	}

	merged := dedupeByURL(append(append(append([]models.NewsItem{}, stored...), bySymbol...), byKeyword...))
	for i := range merged {
		merged[i].Symbol = symbol
	}
	items := Rank(merged, symbol, e.keywords, from, to, limit)

	if err := e.persist(ctx, symbol, items); err != nil {
		logrus.WithError(err).WithField("symbol", symbol).Warn("news persist failed")
	}
	e.remember(ctx, key, items)
	return items, nil
}

// remember writes both cache tiers; a shared write failure only loses the tier.
func (e *Engine) remember(ctx context.Context, key string, items []models.NewsItem) {
	e.cache.Set(key, items)
	if e.shared == nil {
		return
	}
	if err := e.shared.SetJSON(ctx, key, items, e.opts.CacheTTL); err != nil {
		logrus.WithError(err).WithField("key", key).Debug("news shared cache write failed")
	}
}

// persist upserts items and their symbol index; every failure is reported.
func (e *Engine) persist(ctx context.Context, symbol string, items []models.NewsItem) error {
	if e.store == nil {
		return nil
	}
	var errs []error
	for _, item := range items {
		id, err := e.store.UpsertArticle(ctx, &dbmodels.NewsArticle{
			URL:         item.URL,
			Title:       truncateRunes(item.Title, 500),
			Description: item.Description,
			Source:      item.Source,
			PublishedAt: item.Time,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.store.CreateSymbolIndex(ctx, symbol, id, item.Time); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func fromArticles(symbol string, articles []dbmodels.NewsArticle) []models.NewsItem {
	items := make([]models.NewsItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, models.NewsItem{
			Symbol:      symbol,
			Time:        a.PublishedAt,
			Source:      a.Source,
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
		})
	}
	return items
}

// distinctBare provider namespaces removed, duplicates dropped.
func distinctBare(symbols []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range symbols {
		bare := utils.BareTicker(s)
		if bare == "" || seen[bare] {
			continue
		}
		seen[bare] = true
		out = append(out, bare)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
