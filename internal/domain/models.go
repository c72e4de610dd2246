package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderRow struct {
	Date      time.Time       `json:"date"`
	ItemName  string          `json:"item_name"`
	Amount    decimal.Decimal `json:"amount"`
	OrderedBy string          `json:"ordered_by"`
}

type SummaryStats struct {
	TotalPaid         int64 `json:"total_paid"`
	TotalDue          int64 `json:"total_due"`
	PendingOrders     int64 `json:"pending_orders"`
	TotalDelivered    int64 `json:"total_delivered"`
	TotalSalesAllTime int64 `json:"total_sales_all_time"`
}

// CustomerRecord is shared by the Customers sheet and the computed fallback.
// TotalOrders is nil when the sheet does not provide it.
type CustomerRecord struct {
	Name        string          `json:"ordered_by"`
	TotalOrders *int            `json:"total_orders,omitempty"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

type ItemRecord struct {
	ItemName   string          `json:"item_name"`
	Count      int             `json:"count"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

type CustomerSpend struct {
	Name   string          `json:"ordered_by"`
	Amount decimal.Decimal `json:"amount"`
}

type RecentOrder struct {
	Date      string          `json:"date"`
	OrderedBy string          `json:"ordered_by"`
	Amount    decimal.Decimal `json:"amount"`
}

type ItemDetail struct {
	OrderCount   int             `json:"order_count"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	TopCustomers []CustomerSpend `json:"top_customers"`
	RecentOrders []RecentOrder   `json:"recent_orders"`
}

type MonthView struct {
	Label           string
	Rows            []OrderRow
	TotalOrders     int
	TotalSales      decimal.Decimal
	MostOrderedItem string
}

type ShareSlice struct {
	Label   string
	Value   decimal.Decimal
	Percent float64
}

type DailyPoint struct {
	Day    time.Time
	Amount decimal.Decimal
}

type ActivityEntry struct {
	ActivityID int64     `json:"activity_id"`
	CreatedAt  time.Time `json:"created_at"`
	Email      *string   `json:"email,omitempty"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Details    string    `json:"details"`
}
