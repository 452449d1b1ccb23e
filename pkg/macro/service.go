package macro

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"trading_journal/models"
	dbmodels "trading_journal/pkg/models"
	"trading_journal/pkg/tracing"
)

// SeriesStore persistence of macro series and their observations.
type SeriesStore interface {
	UpsertSeries(ctx context.Context, series dbmodels.MacroSeries) (uint, error)
	UpsertObservation(ctx context.Context, seriesID uint, date time.Time, value float64, revisionSeq int) error
	FindSeries(ctx context.Context, provider, code string) (*dbmodels.MacroSeries, error)
	LatestObservations(ctx context.Context, seriesID uint, from, to time.Time) ([]dbmodels.MacroObservation, error)
}

type Options struct {
	FREDBaseURL    string
	FREDAPIKey     string
	FinnhubBaseURL string
	FinnhubAPIKey  string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Service serves macro series from storage, falling back to FRED.
type Service struct {
	store    SeriesStore
	fred     *fredClient
	calendar *calendarClient
}

// NewService store may be nil, in which case every read goes upstream.
func NewService(opts Options, store SeriesStore) *Service {
	if opts.FREDBaseURL == "" {
		opts.FREDBaseURL = "https://api.stlouisfed.org/fred"
	}
	if opts.FinnhubBaseURL == "" {
		opts.FinnhubBaseURL = "https://finnhub.io"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	s := &Service{store: store}
	if opts.FREDAPIKey != "" {
		s.fred = &fredClient{
			baseURL:    opts.FREDBaseURL,
			apiKey:     opts.FREDAPIKey,
			timeout:    opts.RequestTimeout,
			httpClient: opts.HTTPClient,
			limiter:    rate.NewLimiter(rate.Limit(2), 4),
		}
	}
	if opts.FinnhubAPIKey != "" {
		s.calendar = &calendarClient{
			baseURL:    opts.FinnhubBaseURL,
			token:      opts.FinnhubAPIKey,
			timeout:    opts.RequestTimeout,
			httpClient: opts.HTTPClient,
			limiter:    rate.NewLimiter(rate.Limit(1), 1),
		}
	}
	return s
}

// HasAnyData true when at least one series has an observation.
func HasAnyData(record models.MacroRecord) bool {
	for _, series := range record {
		if series != nil && len(series.Series) > 0 {
			return true
		}
	}
	return false
}

// hasCoreData true when any of CoreKeys has an observation. Calendar-only
// series such as PMI do not count.
func hasCoreData(record models.MacroRecord) bool {
	core := models.MacroRecord{}
	for _, key := range CoreKeys {
		if series, ok := record[key]; ok {
			core[key] = series
		}
	}
	return HasAnyData(core)
}

// FromStorage latest observations in [from, to] for keys; keys without data are absent.
func (s *Service) FromStorage(ctx context.Context, country string, keys []string, from, to time.Time) (models.MacroRecord, error) {
	record := models.MacroRecord{}
	if s.store == nil {
		return record, nil
	}
	country = strings.ToUpper(country)

	var errs []error
	for _, key := range keys {
		series, err := s.store.FindSeries(ctx, providerFor(key), SeriesCode(country, key))
		if err != nil {
			errs = append(errs, fmt.Errorf("find %s: %w", key, err))
			continue
		}
		if series == nil {
			continue
		}
		obs, err := s.store.LatestObservations(ctx, series.ID, from, to)
		if err != nil {
			errs = append(errs, fmt.Errorf("observations %s: %w", key, err))
			continue
		}
		if len(obs) == 0 {
			continue
		}
		points := make([]models.MacroPoint, 0, len(obs))
		for _, o := range obs {
			points = append(points, models.MacroPoint{Time: o.Date.Format(dateLayout), Value: o.Value})
		}
		record[key] = &models.MacroSeries{
			Series: points,
			Meta:   models.MacroMeta{Country: country, Unit: series.Unit, Name: series.Name},
		}
	}
	return record, errors.Join(errs...)
}

// FetchAndStore pulls the core indicators in parallel, clips them to the
// window and persists every point as revision 0. Indicators the provider
// cannot serve are simply absent.
func (s *Service) FetchAndStore(ctx context.Context, country string, from, to time.Time) (models.MacroRecord, error) {
	record := models.MacroRecord{}
	if s.fred == nil {
		return record, nil
	}
	country = strings.ToUpper(country)
	specs, ok := fredSeries[country]
	if !ok {
		return record, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	for _, key := range CoreKeys {
		spec, ok := specs[key]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(key string, spec seriesSpec) {
			defer wg.Done()
			points, err := s.fred.observations(ctx, spec.ID, from, to)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			points = clip(points, from, to)
			if len(points) == 0 {
				return
			}
			if err := s.persist(ctx, country, key, spec, points); err != nil {
				logrus.WithFields(logrus.Fields{
					"country": country,
					"series":  spec.ID,
				}).WithError(err).Warn("macro persist failed")
			}
			mu.Lock()
			record[key] = &models.MacroSeries{
				Series: points,
				Meta:   models.MacroMeta{Country: country, Unit: spec.Unit, Name: spec.Name},
			}
			mu.Unlock()
		}(key, spec)
	}
	wg.Wait()
	return record, errors.Join(errs...)
}

func (s *Service) persist(ctx context.Context, country, key string, spec seriesSpec, points []models.MacroPoint) error {
	if s.store == nil {
		return nil
	}
	seriesID, err := s.store.UpsertSeries(ctx, dbmodels.MacroSeries{
		Provider:  providerFor(key),
		Code:      SeriesCode(country, key),
		Country:   country,
		Name:      spec.Name,
		Frequency: spec.Frequency,
		Unit:      spec.Unit,
	})
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range points {
		date, err := time.Parse(dateLayout, p.Time)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.store.UpsertObservation(ctx, seriesID, date, p.Value, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolve storage first; when storage has none of the core series, fetch
// upstream and persist.
// The result may be empty and failures only degrade it.
func (s *Service) Resolve(ctx context.Context, country string, from, to time.Time) models.MacroRecord {
	ctx, span := tracing.StartSpan(ctx, "macro.Resolve", attribute.String("country", country))
	defer span.End()

	record, err := s.FromStorage(ctx, country, AllKeys, from, to)
	if err != nil {
		logrus.WithError(err).WithField("country", country).Warn("macro storage read failed")
	}
	if hasCoreData(record) {
		return record
	}

	fetched, err := s.FetchAndStore(ctx, country, from, to)
	if err != nil {
		tracing.RecordError(span, err)
		logrus.WithError(err).WithField("country", country).Warn("macro upstream fetch degraded")
	}
	for key, series := range fetched {
		record[key] = series
	}
	return record
}

// Events calendar releases for country in [from, to]; PMI actuals are
// stored into the COUNTRY_PMI series.
func (s *Service) Events(ctx context.Context, country string, from, to time.Time) ([]models.EconomicEvent, error) {
	if s.calendar == nil {
		return nil, nil
	}
	country = strings.ToUpper(country)
	all, err := s.calendar.events(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var events []models.EconomicEvent
	var pmi []models.MacroPoint
	for _, e := range all {
		if !strings.EqualFold(e.Country, country) {
			continue
		}
		events = append(events, e)
		if e.Actual != nil && strings.Contains(strings.ToUpper(e.Event), "PMI") && len(e.Time) >= len(dateLayout) {
			pmi = append(pmi, models.MacroPoint{Time: e.Time[:len(dateLayout)], Value: *e.Actual})
		}
	}

	if len(pmi) > 0 {
		spec := seriesSpec{Name: "Purchasing Managers Index", Frequency: "monthly", Unit: "index"}
		if err := s.persist(ctx, country, KeyPMI, spec, pmi); err != nil {
			logrus.WithError(err).WithField("country", country).Warn("pmi persist failed")
		}
	}
	return events, nil
}

// Refresh fetches and stores the core indicators for the trailing lookback.
func (s *Service) Refresh(ctx context.Context, country string, lookback time.Duration) error {
	to := time.Now().UTC()
	_, err := s.FetchAndStore(ctx, country, to.Add(-lookback), to)
	return err
}
