package domain

import "time"

// Snapshot is an immutable cache entry. All derived fields are computed
// from Orders in one refresh and replaced together.
type Snapshot struct {
	Orders          []OrderRow
	Months          []string
	Items           []string
	Summary         SummaryStats
	TopItems        []ItemRecord
	Customers       []CustomerRecord
	CustomersSource string
	TotalShareChart string
	RefreshedAt     time.Time
}

const (
	CustomersFromSheet  = "sheet"
	CustomersFromOrders = "orders"
)

const (
	TabMonthwise = "monthwise"
	TabOverview  = "overview"
	TabCustomers = "customers"
	TabItems     = "items"
	TabTrends    = "trends"
)

const (
	PresetThisMonth   = "this_month"
	PresetLast3Months = "last_3_months"
	PresetLast6Months = "last_6_months"
	PresetAllTime     = "all_time"
)

type DashboardFilters struct {
	ActiveTab       string
	Month           string
	Item            string
	DateRangePreset string
}

type DashboardView struct {
	Email      string
	ActiveTab  string
	Stale      bool
	StaleError string

	Months           []string
	SelectedMonth    string
	TotalOrdersMonth int
	TotalSalesMonth  string
	MostOrderedItem  string
	MonthlyChart     string

	Summary         SummaryStats
	TotalShareChart string
	TopItems        []ItemRecord
	CustomersJSON   string

	Items        []string
	SelectedItem string
	ItemDetail   ItemDetail

	TrendChart      string
	DateRangePreset string
	StartDate       string
	EndDate         string

	RefreshedAt time.Time
}
