package cache

import (
	"context"
	"time"

	"barreldrop/backend/internal/domain"
)

// ReportCache holds computed profit/loss figures so repeated report requests
// over the same window skip the sales scan.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.ProfitLossReport, bool, error)
	Set(ctx context.Context, key string, value *domain.ProfitLossReport, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.ProfitLossReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.ProfitLossReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
