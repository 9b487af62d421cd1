// Package catalog serves the marketplace part listing.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/cache"
	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
	"github.com/partsinc/parts-server/internal/pkg/metrics"
)

// Paging controls how page/size query parameters become skip/limit.
type Paging struct {
	DefaultSize int
	MaxSize     int
	// LegacySkip uses the page index itself as the skip count.
	LegacySkip bool
}

// Page is one slice of the catalog plus the total number of parts.
type Page struct {
	Parts []domain.Part
	Total int64
}

// Service implements catalog business logic.
type Service struct {
	repo   Repository
	cache  cache.Cache
	paging Paging
}

// NewService creates a new catalog service. A nil cache disables caching.
func NewService(repo Repository, c cache.Cache, paging Paging) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if paging.DefaultSize <= 0 {
		paging.DefaultSize = 10
	}
	if paging.MaxSize < paging.DefaultSize {
		paging.MaxSize = paging.DefaultSize
	}
	return &Service{
		repo:   repo,
		cache:  c,
		paging: paging,
	}
}

// Window converts a zero-based page index and page size into skip and limit.
// A size of zero selects the default; sizes above the maximum are capped.
// Pages whose skip would overflow are rejected.
func (s *Service) Window(page, size int) (skip, limit int64, err error) {
	if page < 0 || size < 0 {
		return 0, 0, ErrInvalidPaging
	}
	if size == 0 {
		size = s.paging.DefaultSize
	}
	if size > s.paging.MaxSize {
		size = s.paging.MaxSize
	}

	if s.paging.LegacySkip {
		return int64(page), int64(size), nil
	}
	if int64(page) > math.MaxInt64/int64(size) {
		return 0, 0, ErrInvalidPaging
	}
	return int64(page) * int64(size), int64(size), nil
}

// ListParts returns one page of parts.
func (s *Service) ListParts(ctx context.Context, page, size int) (*Page, error) {
	skip, limit, err := s.Window(page, size)
	if err != nil {
		return nil, err
	}

	parts, err := s.repo.ListParts(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}

	total, err := s.repo.CountParts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count parts: %w", err)
	}

	return &Page{Parts: parts, Total: total}, nil
}

// GetPart returns a part by id, reading through the cache.
// Cache failures are logged and fall back to the repository.
func (s *Service) GetPart(ctx context.Context, id string) (*domain.Part, error) {
	key := partKey(id)
	log := ctxlog.FromContext(ctx)

	var cached domain.Part
	found, err := s.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		log.Warn("part cache read failed", "part_id", id, "error", err)
	case found:
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return &cached, nil
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	part, err := s.repo.GetPart(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, part); err != nil {
		log.Warn("part cache write failed", "part_id", id, "error", err)
	}
	return part, nil
}

// ImportParts bulk-inserts parts and returns their ids.
func (s *Service) ImportParts(ctx context.Context, parts []domain.Part) ([]string, error) {
	if len(parts) == 0 {
		return nil, errors.New("no parts to import")
	}

	ids, err := s.repo.InsertParts(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("insert parts: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = partKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		ctxlog.FromContext(ctx).Warn("part cache invalidation failed", "error", err)
	}

	return ids, nil
}

func partKey(id string) string {
	return "part:" + id
}
