package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dashboard/internal/cache"
	"dashboard/internal/chart"
	"dashboard/internal/domain"
	"dashboard/internal/excel"
	"dashboard/internal/report"
	"dashboard/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	TopItemsLimit        = 10
	OverviewDonutSlices  = 10
	MonthDonutSlices     = 5
	OverviewDonutTitle   = "Total Item Share (All Time)"
	MonthDonutTitle      = "Item Share This Month"
	dateInputLayout      = "2006-01-02"
	defaultActivityLimit = 50
)

type Fetcher interface {
	Fetch(ctx context.Context, token *oauth2.Token, fileID string) ([]byte, error)
}

// ActivityLog is implemented by repository.Repository. A nil ActivityLog
// disables the log.
type ActivityLog interface {
	LogActivity(ctx context.Context, input repository.ActivityInput) error
	ListActivity(ctx context.Context, limit, offset int, search string) ([]domain.ActivityEntry, error)
	CountActivity(ctx context.Context, search string) (int, error)
}

type Options struct {
	FileID string
	Layout excel.Layout
}

type Service struct {
	fetcher  Fetcher
	cache    *cache.Cache
	activity ActivityLog
	opts     Options
	logger   *zap.Logger
}

func New(fetcher Fetcher, snapshots *cache.Cache, activity ActivityLog, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher:  fetcher,
		cache:    snapshots,
		activity: activity,
		opts:     opts,
		logger:   logger,
	}
}

// Snapshot returns the cached snapshot, refreshing it with the caller's
// credential when stale. When the refresh fails the previous snapshot, if
// any, is returned together with the error.
func (s *Service) Snapshot(ctx context.Context, token *oauth2.Token, now time.Time) (*domain.Snapshot, error) {
	snapshot, err := s.cache.RefreshIfStale(ctx, now, func(ctx context.Context, now time.Time) (*domain.Snapshot, error) {
		return s.load(ctx, token, now)
	})
	if err != nil {
		s.logger.Warn("snapshot refresh failed",
			zap.String("kind", domain.ErrorKind(err)),
			zap.Bool("stale_available", snapshot != nil),
			zap.Error(err),
		)
	}
	return snapshot, err
}

func (s *Service) load(ctx context.Context, token *oauth2.Token, now time.Time) (*domain.Snapshot, error) {
	started := time.Now()
	data, err := s.fetcher.Fetch(ctx, token, s.opts.FileID)
	if err != nil {
		return nil, err
	}
	book, err := excel.ParseWorkbook(data, s.opts.Layout)
	if err != nil {
		return nil, err
	}
	snapshot, err := BuildSnapshot(book, now)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("sheet", book.SheetName),
		zap.Int("orders", len(snapshot.Orders)),
		zap.Int("dropped_rows", book.DroppedRows),
		zap.String("customers_source", snapshot.CustomersSource),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(started)),
	}
	if book.CustomersErr != nil {
		fields = append(fields, zap.NamedError("customers_sheet", book.CustomersErr))
	}
	s.logger.Info("snapshot refreshed", fields...)
	return snapshot, nil
}

// Invalidate forces the next Snapshot call to reload.
func (s *Service) Invalidate(ctx context.Context, email string) {
	s.cache.Invalidate()
	s.logger.Info("cache invalidated", zap.String("email", email))
	s.RecordActivity(ctx, email, "refresh", "Manual refresh", "cache invalidated")
}

// BuildSnapshot derives every cached aggregate from a parsed workbook.
func BuildSnapshot(book *excel.Workbook, now time.Time) (*domain.Snapshot, error) {
	orders := book.Orders
	snapshot := &domain.Snapshot{
		Orders:      orders,
		Months:      report.Months(orders),
		Items:       report.Items(orders),
		Summary:     book.Summary,
		TopItems:    report.TopItems(orders, TopItemsLimit),
		RefreshedAt: now,
	}

	if book.CustomersErr == nil && book.Customers != nil {
		snapshot.Customers = book.Customers
		snapshot.CustomersSource = domain.CustomersFromSheet
	} else {
		snapshot.Customers = report.CustomerTotals(orders)
		snapshot.CustomersSource = domain.CustomersFromOrders
	}

	donut, err := chart.Donut(OverviewDonutTitle, report.Shares(orders, OverviewDonutSlices))
	if err != nil {
		return nil, fmt.Errorf("%w: render overview chart: %v", domain.ErrProcessing, err)
	}
	snapshot.TotalShareChart = donut
	return snapshot, nil
}

// BuildView applies the request's filter selections to a snapshot.
func BuildView(snapshot *domain.Snapshot, filters domain.DashboardFilters, today time.Time) (domain.DashboardView, error) {
	view := domain.DashboardView{
		ActiveTab:       normalizeTab(filters.ActiveTab),
		Months:          snapshot.Months,
		Summary:         snapshot.Summary,
		TotalShareChart: snapshot.TotalShareChart,
		TopItems:        snapshot.TopItems,
		Items:           snapshot.Items,
		DateRangePreset: report.NormalizePreset(filters.DateRangePreset),
		RefreshedAt:     snapshot.RefreshedAt,
	}

	view.SelectedMonth = strings.TrimSpace(filters.Month)
	if view.SelectedMonth == "" && len(snapshot.Months) > 0 {
		view.SelectedMonth = snapshot.Months[0]
	}
	month := report.MonthView(snapshot.Orders, view.SelectedMonth)
	view.TotalOrdersMonth = month.TotalOrders
	view.TotalSalesMonth = FormatRupees(month.TotalSales)
	view.MostOrderedItem = month.MostOrderedItem
	monthChart, err := chart.Donut(MonthDonutTitle, report.Shares(month.Rows, MonthDonutSlices))
	if err != nil {
		return view, fmt.Errorf("%w: render month chart: %v", domain.ErrProcessing, err)
	}
	view.MonthlyChart = monthChart

	customers := snapshot.Customers
	if customers == nil {
		customers = []domain.CustomerRecord{}
	}
	customersJSON, err := json.Marshal(customers)
	if err != nil {
		return view, fmt.Errorf("%w: encode customers: %v", domain.ErrProcessing, err)
	}
	view.CustomersJSON = string(customersJSON)

	view.SelectedItem = strings.TrimSpace(filters.Item)
	if view.SelectedItem == "" && len(snapshot.Items) > 0 {
		view.SelectedItem = snapshot.Items[0]
	}
	view.ItemDetail = report.ItemDetail(snapshot.Orders, view.SelectedItem)

	start, end := report.PresetRange(view.DateRangePreset, today, snapshot.Orders)
	view.StartDate = start.Format(dateInputLayout)
	view.EndDate = end.Format(dateInputLayout)
	trend, err := chart.Trend(report.DailySales(snapshot.Orders, start, end))
	if err != nil {
		return view, fmt.Errorf("%w: render trend chart: %v", domain.ErrProcessing, err)
	}
	view.TrendChart = trend

	return view, nil
}

func normalizeTab(tab string) string {
	switch tab {
	case domain.TabMonthwise, domain.TabOverview, domain.TabCustomers, domain.TabItems, domain.TabTrends:
		return tab
	default:
		return domain.TabMonthwise
	}
}

var rupeePrinter = message.NewPrinter(language.English)

// FormatRupees renders an amount as whole rupees with thousands separators,
// e.g. ₹1,234,567.
func FormatRupees(amount decimal.Decimal) string {
	return rupeePrinter.Sprintf("₹%d", amount.Round(0).IntPart())
}

// RecordActivity writes to the activity log when one is configured. Failures
// are logged and never surface to the request.
func (s *Service) RecordActivity(ctx context.Context, email, kind, title, details string) {
	if s.activity == nil {
		return
	}
	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}
	if err := s.activity.LogActivity(ctx, repository.ActivityInput{
		Email:   emailPtr,
		Kind:    kind,
		Title:   title,
		Details: details,
	}); err != nil {
		s.logger.Warn("activity log write failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Service) ListActivity(ctx context.Context, limit, offset int, search string) ([]domain.ActivityEntry, error) {
	if s.activity == nil {
		return []domain.ActivityEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return s.activity.ListActivity(ctx, limit, offset, search)
}

// CountActivity is the number of entries matching search, for paging through
// ListActivity.
func (s *Service) CountActivity(ctx context.Context, search string) (int, error) {
	if s.activity == nil {
		return 0, nil
	}
	return s.activity.CountActivity(ctx, search)
}

// ActivityEnabled reports whether an activity log is configured.
func (s *Service) ActivityEnabled() bool {
	return s.activity != nil
}

// FailureMessage is the user-facing text for a failed refresh.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthRejected):
		return "Your Google account could not be verified for this dashboard."
	case errors.Is(err, domain.ErrProcessing):
		return "The spreadsheet could not be processed. Check that the Orders sheet has DATE, ITEM NAME, AMOUNT and ORDERED BY columns."
	case errors.Is(err, domain.ErrRemote):
		return "The spreadsheet could not be downloaded from Google Drive. Try again in a moment."
	case errors.Is(err, domain.ErrReloginRequired):
		return "Your Google session has expired. Please sign in again."
	default:
		return "Something went wrong while loading the dashboard."
	}
}
