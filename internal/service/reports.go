package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/money"
)

const reportCacheTTL = 5 * time.Minute

// SalesReport returns the sales in the window, scoped to the actor the same
// way the list endpoint is.
func (s *Service) SalesReport(ctx context.Context, from, to time.Time) (domain.SalesReport, error) {
	scope, err := s.listScope(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}
	sales, err := s.repo.ListSales(ctx, from, to, scope)
	if err != nil {
		return domain.SalesReport{}, err
	}
	return domain.SalesReport{From: from, To: to, Sales: sales}, nil
}

// ProfitLoss aggregates sale totals over the window in the store. Results are
// cached per scope; sales and conversions invalidate the cache, so a hit is
// at most one write behind.
func (s *Service) ProfitLoss(ctx context.Context, from, to time.Time) (domain.ProfitLossReport, error) {
	scope, err := s.listScope(ctx)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}

	key := fmt.Sprintf("report:pl:%s:%d:%d", scope, from.Unix(), to.Unix())
	if cached, ok, err := s.reports.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: report cache get failed: %v", err)
	} else if ok {
		return *cached, nil
	}

	revenue, cost, err := s.repo.SaleTotals(ctx, from, to, scope)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}

	report := domain.ProfitLossReport{
		TotalRevenue: money.RoundMoney(revenue),
		TotalCost:    money.RoundMoney(cost),
	}
	report.TotalProfit = money.RoundMoney(report.TotalRevenue - report.TotalCost)

	if err := s.reports.Set(ctx, key, &report, reportCacheTTL); err != nil {
		log.Printf("[service] WARN: report cache set failed: %v", err)
	}
	return report, nil
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx, "report:pl:*"); err != nil {
		log.Printf("[service] WARN: report cache invalidate failed: %v", err)
	}
}
