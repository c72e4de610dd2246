package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dashboard/internal/cache"
	"dashboard/internal/domain"
	"dashboard/internal/excel"
	"dashboard/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, token *oauth2.Token, fileID string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeActivity struct {
	entries []repository.ActivityInput
	err     error
}

func (f *fakeActivity) LogActivity(ctx context.Context, input repository.ActivityInput) error {
	f.entries = append(f.entries, input)
	return f.err
}

func (f *fakeActivity) ListActivity(ctx context.Context, limit, offset int, search string) ([]domain.ActivityEntry, error) {
	out := make([]domain.ActivityEntry, 0, len(f.entries))
	for i, entry := range f.entries {
		out = append(out, domain.ActivityEntry{ActivityID: int64(i + 1), Email: entry.Email, Kind: entry.Kind, Title: entry.Title})
	}
	return out, nil
}

func (f *fakeActivity) CountActivity(ctx context.Context, search string) (int, error) {
	return len(f.entries), nil
}

func ordersWorkbook(t *testing.T, withCustomers bool) []byte {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", "Orders"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]any{
		{"DATE", "ITEM NAME", "AMOUNT", "ORDERED BY"},
		{"2024-01-05", "A", 10, "X"},
		{"2024-01-06", "B", 5, "Y"},
		{"2023-12-20", "B", 7, "X"},
	}
	for i, row := range rows {
		ref, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := file.SetSheetRow("Orders", ref, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	for i, v := range []int{100, 2, 3, 22, 5} {
		ref, _ := excelize.CoordinatesToCellName(9, i+2)
		if err := file.SetCellValue("Orders", ref, v); err != nil {
			t.Fatalf("set summary: %v", err)
		}
	}

	if withCustomers {
		if _, err := file.NewSheet("Customers"); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		customers := [][]any{
			{"ORDERED BY", "TOTAL AMOUNT"},
			{"Y", 500},
			{"X", 900},
		}
		for i, row := range customers {
			ref, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := file.SetSheetRow("Customers", ref, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func newService(fetcher Fetcher, activity ActivityLog) *Service {
	return New(fetcher, cache.New(10*time.Minute), activity, Options{
		FileID: "file-1",
		Layout: excel.DefaultLayout(),
	}, nil)
}

var refreshTime = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func TestSnapshotPipeline(t *testing.T) {
	fetcher := &fakeFetcher{data: ordersWorkbook(t, false)}
	svc := newService(fetcher, nil)

	snapshot, err := svc.Snapshot(context.Background(), &oauth2.Token{AccessToken: "a"}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(snapshot.Orders))
	}
	if len(snapshot.Months) != 2 || snapshot.Months[0] != "January 2024" || snapshot.Months[1] != "December 2023" {
		t.Fatalf("unexpected months: %v", snapshot.Months)
	}
	if snapshot.Summary.TotalPaid != 100 || snapshot.Summary.TotalDue != 5 {
		t.Fatalf("unexpected summary: %+v", snapshot.Summary)
	}
	if snapshot.TopItems[0].ItemName != "B" || !snapshot.TopItems[0].TotalSales.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected top items: %+v", snapshot.TopItems)
	}
	if snapshot.CustomersSource != domain.CustomersFromOrders {
		t.Fatalf("got customers from %q, want orders fallback", snapshot.CustomersSource)
	}
	if snapshot.Customers[0].Name != "X" || !snapshot.Customers[0].TotalSpent.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("unexpected customers: %+v", snapshot.Customers)
	}
	if snapshot.TotalShareChart == "" {
		t.Fatal("overview chart missing")
	}

	if _, err := svc.Snapshot(context.Background(), &oauth2.Token{AccessToken: "a"}, refreshTime.Add(5*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("got %d fetches within ttl, want 1", fetcher.calls)
	}
}

func TestSnapshotUsesCustomersSheet(t *testing.T) {
	svc := newService(&fakeFetcher{data: ordersWorkbook(t, true)}, nil)

	snapshot, err := svc.Snapshot(context.Background(), &oauth2.Token{AccessToken: "a"}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.CustomersSource != domain.CustomersFromSheet {
		t.Fatalf("got customers from %q, want sheet", snapshot.CustomersSource)
	}
	if snapshot.Customers[0].Name != "X" || !snapshot.Customers[0].TotalSpent.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("unexpected customers: %+v", snapshot.Customers)
	}
}

func TestSnapshotErrors(t *testing.T) {
	cases := []struct {
		name    string
		fetcher *fakeFetcher
		want    error
	}{
		{"relogin", &fakeFetcher{err: domain.ErrReloginRequired}, domain.ErrReloginRequired},
		{"remote", &fakeFetcher{err: domain.ErrRemote}, domain.ErrRemote},
		{"processing", &fakeFetcher{data: []byte("not a workbook")}, domain.ErrProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(tc.fetcher, nil)
			snapshot, err := svc.Snapshot(context.Background(), &oauth2.Token{}, refreshTime)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if snapshot != nil {
				t.Fatal("no snapshot should be available")
			}
		})
	}
}

func TestSnapshotStaleAfterFailedRefresh(t *testing.T) {
	fetcher := &fakeFetcher{data: ordersWorkbook(t, false)}
	activity := &fakeActivity{}
	svc := newService(fetcher, activity)

	first, err := svc.Snapshot(context.Background(), &oauth2.Token{}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Invalidate(context.Background(), "owner@example.com")
	fetcher.err = domain.ErrRemote
	got, err := svc.Snapshot(context.Background(), &oauth2.Token{}, refreshTime.Add(time.Minute))
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("got %v, want ErrRemote", err)
	}
	if got != first {
		t.Fatal("previous snapshot should be returned after a failed refresh")
	}
	if fetcher.calls != 2 {
		t.Fatalf("got %d fetches, want 2", fetcher.calls)
	}
	if len(activity.entries) != 1 || activity.entries[0].Kind != "refresh" {
		t.Fatalf("unexpected activity: %+v", activity.entries)
	}
}

func TestBuildViewDefaults(t *testing.T) {
	svc := newService(&fakeFetcher{data: ordersWorkbook(t, false)}, nil)
	snapshot, err := svc.Snapshot(context.Background(), &oauth2.Token{}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := BuildView(snapshot, domain.DashboardFilters{ActiveTab: "bogus"}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ActiveTab != domain.TabMonthwise {
		t.Fatalf("got tab %q, want monthwise", view.ActiveTab)
	}
	if view.SelectedMonth != "January 2024" || view.TotalOrdersMonth != 2 {
		t.Fatalf("unexpected month view: %q %d", view.SelectedMonth, view.TotalOrdersMonth)
	}
	if view.TotalSalesMonth != "₹15" || view.MostOrderedItem != "A" {
		t.Fatalf("got %q / %q, want ₹15 / A", view.TotalSalesMonth, view.MostOrderedItem)
	}
	if view.SelectedItem != "A" || view.ItemDetail.OrderCount != 1 {
		t.Fatalf("unexpected item detail: %q %+v", view.SelectedItem, view.ItemDetail)
	}
	if view.DateRangePreset != domain.PresetThisMonth || view.StartDate != "2024-01-01" || view.EndDate != "2024-01-20" {
		t.Fatalf("unexpected range: %s %s..%s", view.DateRangePreset, view.StartDate, view.EndDate)
	}
	if view.MonthlyChart == "" || view.TrendChart == "" {
		t.Fatal("charts missing")
	}
	if !strings.Contains(view.CustomersJSON, `"ordered_by":"X"`) {
		t.Fatalf("customers json missing records: %s", view.CustomersJSON)
	}
}

func TestBuildViewFilters(t *testing.T) {
	svc := newService(&fakeFetcher{data: ordersWorkbook(t, false)}, nil)
	snapshot, err := svc.Snapshot(context.Background(), &oauth2.Token{}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := BuildView(snapshot, domain.DashboardFilters{
		ActiveTab:       domain.TabItems,
		Month:           "December 2023",
		Item:            "B",
		DateRangePreset: domain.PresetAllTime,
	}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ActiveTab != domain.TabItems || view.MostOrderedItem != "B" || view.TotalSalesMonth != "₹7" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.ItemDetail.OrderCount != 2 || !view.ItemDetail.TotalSales.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected item detail: %+v", view.ItemDetail)
	}
	if view.StartDate != "2023-12-20" || view.EndDate != "2024-01-06" {
		t.Fatalf("got range %s..%s", view.StartDate, view.EndDate)
	}

	unknown, err := BuildView(snapshot, domain.DashboardFilters{Month: "March 2020"}, refreshTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unknown.MostOrderedItem != "N/A" || unknown.TotalSalesMonth != "₹0" {
		t.Fatalf("empty month: %q %q", unknown.MostOrderedItem, unknown.TotalSalesMonth)
	}
}

func TestFormatRupees(t *testing.T) {
	cases := map[string]string{
		"0":          "₹0",
		"999":        "₹999",
		"1234":       "₹1,234",
		"1234567.6":  "₹1,234,568",
		"1000000000": "₹1,000,000,000",
	}
	for in, want := range cases {
		if got := FormatRupees(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatRupees(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestActivityLogOptional(t *testing.T) {
	svc := newService(&fakeFetcher{}, nil)
	svc.RecordActivity(context.Background(), "owner@example.com", "sign_in", "Signed in", "")
	entries, err := svc.ListActivity(context.Background(), 0, 0, "")
	if err != nil || len(entries) != 0 || svc.ActivityEnabled() {
		t.Fatalf("disabled log returned %v, %v", entries, err)
	}
	if total, err := svc.CountActivity(context.Background(), ""); err != nil || total != 0 {
		t.Fatalf("disabled log counted %d, %v", total, err)
	}

	activity := &fakeActivity{err: errors.New("db down")}
	svc = newService(&fakeFetcher{}, activity)
	svc.RecordActivity(context.Background(), "", "sign_in_rejected", "Rejected", "stranger@example.com")
	if len(activity.entries) != 1 || activity.entries[0].Email != nil {
		t.Fatalf("unexpected activity: %+v", activity.entries)
	}
	if total, err := svc.CountActivity(context.Background(), ""); err != nil || total != 1 {
		t.Fatalf("got total %d, %v, want 1", total, err)
	}
}
