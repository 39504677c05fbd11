package services

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"outgo/internal/cache"
	"outgo/internal/core"
	"outgo/internal/storage"
)

const (
	topExpenseCount = 5
	trailingMonths  = 12
)

// DashboardStore is the subset of the repository the dashboard needs.
type DashboardStore interface {
	SumExpenses(ctx context.Context, owner string) (core.Money, error)
	SumExpensesBetween(ctx context.Context, owner string, from, to time.Time) (core.Money, error)
	TopExpenses(ctx context.Context, owner string, n int) ([]core.TopExpense, error)
	AmountsByDateSince(ctx context.Context, owner string, from time.Time) ([]storage.DatedAmount, error)
}

// DashboardService computes per-owner aggregates on demand and caches the
// result until the next mutation or the cache TTL, whichever comes first.
type DashboardService struct {
	store     DashboardStore
	snapshots cache.Cache[core.Dashboard]
	now       func() time.Time
}

func NewDashboardService(store DashboardStore, snapshots cache.Cache[core.Dashboard]) *DashboardService {
	return &DashboardService{
		store:     store,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Overview assembles the dashboard for one owner. The four aggregate queries
// run concurrently; any failure fails the whole request, never a partial
// dashboard. Month boundaries are computed in UTC.
func (s *DashboardService) Overview(ctx context.Context, owner string) (core.Dashboard, error) {
	if s.snapshots != nil {
		if d, ok := s.snapshots.Get(owner); ok {
			return d, nil
		}
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	summaryStart := monthStart.AddDate(0, -(trailingMonths - 1), 0)

	var (
		total     core.Money
		thisMonth core.Money
		top       []core.TopExpense
		amounts   []storage.DatedAmount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.store.SumExpenses(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		thisMonth, err = s.store.SumExpensesBetween(gctx, owner, monthStart, nextMonth)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.store.TopExpenses(gctx, owner, topExpenseCount)
		return err
	})
	g.Go(func() error {
		var err error
		amounts, err = s.store.AmountsByDateSince(gctx, owner, summaryStart)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, core.NewStorageError("load dashboard", err)
	}

	if top == nil {
		top = []core.TopExpense{}
	}

	d := core.Dashboard{
		TotalExpenses:        total,
		CurrentMonthExpenses: thisMonth,
		TopExpenses:          top,
		MonthlySummary:       BucketByMonth(amounts),
	}

	if s.snapshots != nil {
		s.snapshots.Set(owner, d)
	}
	return d, nil
}

// Invalidate drops the cached dashboard for one owner.
func (s *DashboardService) Invalidate(owner string) {
	if s.snapshots != nil {
		s.snapshots.Delete(owner)
	}
}

// BucketByMonth groups amounts into "YYYY-MM" totals, ascending by month.
// Months with no expenses produce no bucket.
func BucketByMonth(amounts []storage.DatedAmount) []core.MonthTotal {
	totals := make(map[string]int64)
	for _, a := range amounts {
		totals[a.Date.UTC().Format("2006-01")] += a.Amount.Cents
	}

	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Strings(months)

	summary := make([]core.MonthTotal, 0, len(months))
	for _, m := range months {
		summary = append(summary, core.MonthTotal{Month: m, Total: core.Money{Cents: totals[m]}})
	}
	return summary
}
