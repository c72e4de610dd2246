// Package report derives the dashboard aggregates from parsed order rows.
// Functions here are pure; grouping keeps the order in which a key first
// appears so that ties resolve deterministically.
package report

import (
	"sort"
	"time"

	"dashboard/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	MonthLayout      = "January 2006"
	RecentDateLayout = "02 Jan 2006"
	NotAvailable     = "N/A"
	OthersLabel      = "Others"
)

type group struct {
	key   string
	count int
	total decimal.Decimal
}

// groupBy sums amounts per key in first-occurrence order, skipping empty keys.
func groupBy(rows []domain.OrderRow, key func(domain.OrderRow) string) []group {
	index := make(map[string]int)
	groups := make([]group, 0)
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, group{key: k, total: decimal.Zero})
		}
		groups[pos].count++
		groups[pos].total = groups[pos].total.Add(row.Amount)
	}
	return groups
}

func sortByTotalDesc(groups []group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].total.GreaterThan(groups[j].total)
	})
}

func byItem(row domain.OrderRow) string     { return row.ItemName }
func byCustomer(row domain.OrderRow) string { return row.OrderedBy }

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Months lists the distinct calendar months, most recent first.
func Months(rows []domain.OrderRow) []string {
	seen := make(map[time.Time]struct{})
	months := make([]time.Time, 0)
	for _, row := range rows {
		m := monthStart(row.Date)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].After(months[j]) })

	labels := make([]string, 0, len(months))
	for _, m := range months {
		labels = append(labels, m.Format(MonthLayout))
	}
	return labels
}

func Items(rows []domain.OrderRow) []string {
	groups := groupBy(rows, byItem)
	items := make([]string, 0, len(groups))
	for _, g := range groups {
		items = append(items, g.key)
	}
	sort.Strings(items)
	return items
}

func TopItems(rows []domain.OrderRow, n int) []domain.ItemRecord {
	groups := groupBy(rows, byItem)
	sortByTotalDesc(groups)
	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}
	items := make([]domain.ItemRecord, 0, len(groups))
	for _, g := range groups {
		items = append(items, domain.ItemRecord{ItemName: g.key, Count: g.count, TotalSales: g.total})
	}
	return items
}

// CustomerTotals is the fallback used when the workbook has no usable
// customers sheet.
func CustomerTotals(rows []domain.OrderRow) []domain.CustomerRecord {
	groups := groupBy(rows, byCustomer)
	sortByTotalDesc(groups)
	customers := make([]domain.CustomerRecord, 0, len(groups))
	for _, g := range groups {
		count := g.count
		customers = append(customers, domain.CustomerRecord{
			Name:        g.key,
			TotalOrders: &count,
			TotalSpent:  g.total,
		})
	}
	return customers
}

func ItemDetail(rows []domain.OrderRow, item string) domain.ItemDetail {
	detail := domain.ItemDetail{
		TotalSales:   decimal.Zero,
		TopCustomers: []domain.CustomerSpend{},
		RecentOrders: []domain.RecentOrder{},
	}
	if item == "" {
		return detail
	}

	matching := make([]domain.OrderRow, 0)
	for _, row := range rows {
		if row.ItemName == item {
			matching = append(matching, row)
			detail.TotalSales = detail.TotalSales.Add(row.Amount)
		}
	}
	detail.OrderCount = len(matching)
	if len(matching) == 0 {
		return detail
	}

	customers := groupBy(matching, byCustomer)
	sortByTotalDesc(customers)
	for i, g := range customers {
		if i == 5 {
			break
		}
		detail.TopCustomers = append(detail.TopCustomers, domain.CustomerSpend{Name: g.key, Amount: g.total})
	}

	recent := make([]domain.OrderRow, len(matching))
	copy(recent, matching)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
	for i, row := range recent {
		if i == 5 {
			break
		}
		detail.RecentOrders = append(detail.RecentOrders, domain.RecentOrder{
			Date:      row.Date.Format(RecentDateLayout),
			OrderedBy: row.OrderedBy,
			Amount:    row.Amount,
		})
	}
	return detail
}

// MonthView filters rows to the month labelled like "January 2006".
func MonthView(rows []domain.OrderRow, label string) domain.MonthView {
	view := domain.MonthView{
		Label:           label,
		Rows:            make([]domain.OrderRow, 0),
		TotalSales:      decimal.Zero,
		MostOrderedItem: NotAvailable,
	}
	for _, row := range rows {
		if row.Date.Format(MonthLayout) != label {
			continue
		}
		view.Rows = append(view.Rows, row)
		if row.OrderedBy != "" {
			view.TotalOrders++
		}
	}
	view.TotalSales = Total(view.Rows)
	if !view.TotalSales.IsPositive() {
		return view
	}

	groups := groupBy(view.Rows, byItem)
	sortByTotalDesc(groups)
	if len(groups) > 0 {
		view.MostOrderedItem = groups[0].key
	}
	return view
}

// Shares builds donut slices: the top n items plus an "Others" slice when
// the remaining items sum to a positive amount. Non-positive slices are
// dropped and percentages are relative to the displayed total.
func Shares(rows []domain.OrderRow, n int) []domain.ShareSlice {
	if n <= 0 {
		return []domain.ShareSlice{}
	}
	groups := groupBy(rows, byItem)
	sortByTotalDesc(groups)

	candidates := make([]domain.ShareSlice, 0, n+1)
	for i, g := range groups {
		if i == n {
			break
		}
		candidates = append(candidates, domain.ShareSlice{Label: g.key, Value: g.total})
	}
	if len(groups) > n {
		others := decimal.Zero
		for _, g := range groups[n:] {
			others = others.Add(g.total)
		}
		if others.IsPositive() {
			candidates = append(candidates, domain.ShareSlice{Label: OthersLabel, Value: others})
		}
	}

	slices := make([]domain.ShareSlice, 0, len(candidates))
	shown := decimal.Zero
	for _, s := range candidates {
		if !s.Value.IsPositive() {
			continue
		}
		slices = append(slices, s)
		shown = shown.Add(s.Value)
	}
	for i := range slices {
		slices[i].Percent = slices[i].Value.Div(shown).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return slices
}

// DailySales sums amounts per calendar day within [from, to], inclusive of
// the whole end day.
func DailySales(rows []domain.OrderRow, from, to time.Time) []domain.DailyPoint {
	start := dayStart(from)
	end := dayStart(to).AddDate(0, 0, 1)
	totals := make(map[time.Time]decimal.Decimal)
	for _, row := range rows {
		if row.Date.Before(start) || !row.Date.Before(end) {
			continue
		}
		day := dayStart(row.Date)
		current, ok := totals[day]
		if !ok {
			current = decimal.Zero
		}
		totals[day] = current.Add(row.Amount)
	}

	points := make([]domain.DailyPoint, 0, len(totals))
	for day, amount := range totals {
		points = append(points, domain.DailyPoint{Day: day, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Day.Before(points[j].Day) })
	return points
}

func Total(rows []domain.OrderRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}
