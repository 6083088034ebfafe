package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/learner-analytics/internal/aggregate"
	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/config"
	"github.com/ignite/learner-analytics/internal/facts"
	"github.com/ignite/learner-analytics/internal/identity"
	"github.com/ignite/learner-analytics/internal/pkg/logger"
	"github.com/ignite/learner-analytics/internal/query"
)

// Options tune report generation. Zero values take the defaults: top 10
// and 50 rows per page. A nil WeekStart starts Weekly buckets on Monday.
type Options struct {
	CacheTTL        time.Duration
	TopN            int
	WeekStart       *time.Weekday
	DefaultPageSize int
	MaxPageSize     int
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	weekStart, err := cfg.Analytics.Weekday()
	if err != nil {
		return Options{}, err
	}
	return Options{
		CacheTTL:        cfg.Cache.Timeout(),
		TopN:            cfg.Analytics.TopN,
		WeekStart:       &weekStart,
		DefaultPageSize: cfg.Analytics.DefaultPageSize,
		MaxPageSize:     cfg.Analytics.MaxPageSize,
	}, nil
}

// Service runs reports against a fact reader. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	reader  facts.Reader
	cache   cache.Cache
	catalog catalog.Catalog
	groups  identity.GroupResolver
	opts    Options

	weekStart time.Weekday
}

// NewService wires a Service. A nil cache disables caching; a nil group
// resolver rejects requests with a group filter.
func NewService(reader facts.Reader, c cache.Cache, cat catalog.Catalog, groups identity.GroupResolver, opts Options) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if opts.TopN <= 0 {
		opts.TopN = aggregate.DefaultTopN
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 50
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	weekStart := time.Monday
	if opts.WeekStart != nil {
		weekStart = *opts.WeekStart
	}
	return &Service{
		reader:    reader,
		cache:     c,
		catalog:   cat,
		groups:    groups,
		opts:      opts,
		weekStart: weekStart,
	}
}

// prepare validates f and resolves its group filter to learner ids.
func (s *Service) prepare(ctx context.Context, f Filters) (*request, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	req := &request{filters: f}
	if f.GroupID == nil {
		return req, nil
	}
	if s.groups == nil {
		return nil, ErrGroupsUnavailable
	}

	ids, err := cache.Remember(ctx, s.cache, "group_learners",
		cache.Args{"enterprise": f.EnterpriseID, "group": *f.GroupID}, s.opts.CacheTTL,
		func(ctx context.Context) ([]int64, error) {
			return s.groups.GroupLearners(ctx, f.EnterpriseID, *f.GroupID)
		})
	if err != nil {
		if errors.Is(err, identity.ErrGroupNotFound) {
			return nil, &ValidationError{Field: "group_uuid", Reason: "not found for enterprise", Err: err}
		}
		return nil, fmt.Errorf("resolve group %s: %w", *f.GroupID, err)
	}
	logger.Debug("resolved group filter", "group", f.GroupID.String(), "learners", len(ids))
	req.groupIDs = ids
	return req, nil
}

// fetch runs fn through the result cache, keyed by op, the request filters
// and extra.
func fetch[T any](ctx context.Context, s *Service, req *request, op string, extra cache.Args, fn func(context.Context) (T, error)) (T, error) {
	return cache.Remember(ctx, s.cache, op, req.filters.cacheArgs(extra), s.opts.CacheTTL, fn)
}

// render builds the predicate set for dateColumn and renders tmpl with it.
func render(req *request, dateColumn string, dims bool, tmpl func(*query.Set) (string, error)) (string, query.Params, error) {
	set, params, err := req.scope(dateColumn, dims)
	if err != nil {
		return "", nil, err
	}
	text, err := tmpl(set)
	if err != nil {
		return "", nil, err
	}
	return text, params, nil
}

// single runs a query expected to return exactly one row.
func (s *Service) single(ctx context.Context, text string, params query.Params) (facts.Row, error) {
	rows, err := s.reader.Execute(ctx, text, params)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("expected one row, got %d", len(rows))
	}
	return rows[0], nil
}
