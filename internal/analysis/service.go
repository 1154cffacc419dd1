// internal/analysis/service.go
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cre-workers/internal/common/aws"
	"cre-workers/internal/common/database"
	"cre-workers/internal/common/errors"
	"cre-workers/internal/common/logger"
	"cre-workers/internal/common/metrics"
	"cre-workers/internal/common/observability"
	"cre-workers/internal/leasecalc"
	"cre-workers/internal/models"
)

// cacheKeyVersion is bumped whenever the output document changes shape.
const cacheKeyVersion = "v1"

type Cache interface {
	GetAnalysis(ctx context.Context, key string) ([]byte, bool, error)
	SetAnalysis(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	InvalidateAnalysis(ctx context.Context, keys ...string) error
}

type Store interface {
	SaveAnalysis(ctx context.Context, rec database.AnalysisRecord) error
}

type Indexer interface {
	IndexAnalysis(ctx context.Context, id string, doc []byte) error
}

type Notifier interface {
	PublishAnalysisCompleted(ctx context.Context, event aws.AnalysisCompletedEvent) (string, error)
}

// Options configures a Service. Every backend is optional; a nil backend is
// skipped.
type Options struct {
	Defaults      leasecalc.Convention
	CacheTTL      time.Duration
	Cache         Cache
	Store         Store
	Indexer       Indexer
	Notifier      Notifier
	Logger        logger.Logger
	Observability *observability.Observability
}

// Service runs lease analyses end to end.
type Service struct {
	defaults leasecalc.Convention
	cacheTTL time.Duration
	cache    Cache
	store    Store
	indexer  Indexer
	notifier Notifier
	logger   logger.Logger
	obs      *observability.Observability
}

// Result is one analysis outcome.
type Result struct {
	Document  *models.AnalysisDocument
	InputHash string
	Cached    bool
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		defaults: opts.Defaults.WithDefaults(),
		cacheTTL: opts.CacheTTL,
		cache:    opts.Cache,
		store:    opts.Store,
		indexer:  opts.Indexer,
		notifier: opts.Notifier,
		logger:   log,
		obs:      opts.Observability,
	}
}

// Defaults returns the convention applied when a document does not set one.
func (s *Service) Defaults() leasecalc.Convention {
	return s.defaults
}

// Run validates a raw input document against the deal schema and analyses it.
func (s *Service) Run(ctx context.Context, raw []byte) (*Result, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(string(errorCode(err))).Inc()
		return nil, err
	}
	return s.RunDocument(ctx, doc)
}

// ParseDocument validates raw against the deal schema and decodes it.
func ParseDocument(raw []byte) (*models.DealDocument, error) {
	result, err := models.DealSchema().ValidateDocument(raw)
	if err != nil {
		return nil, errors.NewParseError(err)
	}
	if !result.Valid {
		first := result.Errors[0]
		stdErr := errors.NewInvalidInputError(first.Field, first.Message)
		stdErr.Metadata = map[string]interface{}{"errors": result.GetErrorMessages()}
		return nil, stdErr
	}

	var doc models.DealDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &doc, nil
}

// RunDocument analyses an already decoded document. Schema validation is the
// caller's responsibility; semantic validation happens here.
func (s *Service) RunDocument(ctx context.Context, doc *models.DealDocument) (*Result, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "lease.analyze", attribute.String("deal_name", doc.DealName))
	defer span.End()

	deal, omitted, err := doc.ToDeal(s.defaults)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("convention", deal.Convention.String()))

	key, err := CacheKey(doc, deal.Convention)
	if err != nil {
		return nil, s.fail(span, err)
	}

	if cached := s.lookup(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		metrics.AnalysesTotal.WithLabelValues("cached").Inc()
		return &Result{Document: cached, InputHash: key, Cached: true}, nil
	}

	res, err := leasecalc.Analyze(deal)
	if err != nil {
		return nil, s.fail(span, err)
	}

	out := models.NewAnalysisDocument(doc, deal, res, omitted)
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.persist(ctx, key, out, payload)

	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.WithLabelValues(deal.Convention.String()).Observe(time.Since(start).Seconds())
	s.logger.Info("lease analysis completed", map[string]interface{}{
		"analysisId": out.AnalysisID,
		"dealName":   out.DealName,
		"convention": deal.Convention.String(),
		"ner":        out.NER,
		"omitted":    len(omitted),
	})

	return &Result{Document: out, InputHash: key}, nil
}

// CacheKey hashes the decoded document together with the effective
// convention, so a changed default never serves a stale result.
func CacheKey(doc *models.DealDocument, conv leasecalc.Convention) (string, error) {
	canonical, err := json.Marshal(struct {
		Doc        *models.DealDocument `json:"doc"`
		Convention leasecalc.Convention `json:"convention"`
	}{doc, conv})
	if err != nil {
		return "", fmt.Errorf("canonicalise document: %w", err)
	}
	return fmt.Sprintf("%s:%016x", cacheKeyVersion, xxhash.Sum64(canonical)), nil
}

func (s *Service) fail(span trace.Span, err error) error {
	stdErr := errors.FromCalcError(err)
	span.RecordError(stdErr)
	span.SetStatus(codes.Error, string(stdErr.Code))
	metrics.AnalysesTotal.WithLabelValues(string(stdErr.Code)).Inc()
	return stdErr
}

func (s *Service) lookup(ctx context.Context, key string) *models.AnalysisDocument {
	if s.cache == nil {
		return nil
	}
	payload, ok, err := s.cache.GetAnalysis(ctx, key)
	if err != nil {
		s.sideEffectFailed("redis", errors.NewCacheUnavailableError(err))
		return nil
	}
	if !ok {
		return nil
	}
	var doc models.AnalysisDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		s.sideEffectFailed("redis", errors.NewCacheUnavailableError(err))
		return nil
	}
	return &doc
}

// persist runs the storage and notification side effects. Failures are
// logged and counted but never fail the analysis. A result is only cached
// once its history row is stored; after a failed store the key is cleared
// so the next run retries the write.
func (s *Service) persist(ctx context.Context, key string, out *models.AnalysisDocument, payload []byte) {
	stored := true
	if s.store != nil {
		rec := database.AnalysisRecord{
			ID:               out.AnalysisID,
			DealName:         out.DealName,
			InputHash:        key,
			Convention:       out.Convention.String(),
			NER:              out.NER,
			GER:              out.GER,
			NERWithFixturing: out.NERWithFixturing,
			Payload:          payload,
			CreatedAt:        out.GeneratedAt,
		}
		if err := s.store.SaveAnalysis(ctx, rec); err != nil {
			stored = false
			s.sideEffectFailed("postgres", errors.NewStoreFailedError(err))
		}
	}

	if s.indexer != nil {
		if err := s.indexer.IndexAnalysis(ctx, out.AnalysisID, payload); err != nil {
			s.sideEffectFailed("elasticsearch", errors.NewIndexFailedError(err))
		}
	}

	if s.notifier != nil {
		_, err := s.notifier.PublishAnalysisCompleted(ctx, aws.AnalysisCompletedEvent{
			AnalysisID: out.AnalysisID,
			DealName:   out.DealName,
			Convention: out.Convention.String(),
			NER:        out.NER,
			GER:        out.GER,
			OccurredAt: out.GeneratedAt,
		})
		if err != nil {
			s.sideEffectFailed("sns", errors.NewNotifyFailedError(err))
		}
	}

	switch {
	case s.cache == nil:
	case !stored:
		if err := s.cache.InvalidateAnalysis(ctx, key); err != nil {
			s.sideEffectFailed("redis", errors.NewCacheUnavailableError(err))
		}
	default:
		if err := s.cache.SetAnalysis(ctx, key, payload, s.cacheTTL); err != nil {
			s.sideEffectFailed("redis", errors.NewCacheUnavailableError(err))
		}
	}
}

func (s *Service) sideEffectFailed(backend string, stdErr *errors.StandardError) {
	metrics.SideEffectFailures.WithLabelValues(backend).Inc()
	s.logger.Warn("analysis side effect failed", map[string]interface{}{
		"backend":   backend,
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
	})
}

func errorCode(err error) errors.ErrorCode {
	return errors.FromCalcError(err).Code
}
