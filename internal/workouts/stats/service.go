package stats

import (
	"context"
	"errors"

	"github.com/mperic/liftlog/internal/telemetry/metrics"
	"github.com/mperic/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// Service serves the exercise catalog through the cache. Cache problems
// never fail a request, they degrade to a fresh catalog build.
type Service struct {
	analyzer       *Analyzer
	cache          *CatalogCache
	metricsManager *metrics.Manager
}

func NewService(analyzer *Analyzer, cache *CatalogCache, metricsManager *metrics.Manager) *Service {
	return &Service{
		analyzer:       analyzer,
		cache:          cache,
		metricsManager: metricsManager,
	}
}

func (s *Service) Catalog(ctx context.Context, accountID string) (_ []CatalogEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.catalog")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := s.cache.Get(ctx, accountID)
	if err == nil {
		s.metricsManager.CounterCatalogCacheHits.Inc()
		return entries, nil
	}
	if !errors.Is(err, ErrCatalogCacheMiss) {
		log.Errorf("catalog cache get: %s", err)
	}

	s.metricsManager.CounterCatalogCacheMisses.Inc()

	entries, err = s.analyzer.BuildCatalog(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, accountID, entries); err != nil {
		log.Errorf("catalog cache set: %s", err)
	}

	return entries, nil
}
