package excel

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"dashboard/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var headerAliases = map[string]string{
	"date":       "date",
	"order date": "date",
	"amount":     "amount",
	"price":      "amount",
	"item name":  "item_name",
	"item":       "item_name",
	"ordered by": "ordered_by",
	"customer":   "ordered_by",
}

var summaryFields = []string{
	"total_paid",
	"pending_orders",
	"total_delivered",
	"total_sales_all_time",
	"total_due",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Layout describes where the workbook keeps each piece of data.
type Layout struct {
	OrdersSheet         string
	CustomersSheet      string
	CustomerNameColumn  string
	CustomerTotalColumn string
	SummaryColumn       string
	SummaryStartRow     int
	SummaryCells        int
}

func DefaultLayout() Layout {
	return Layout{
		OrdersSheet:         "Orders",
		CustomersSheet:      "Customers",
		CustomerNameColumn:  "ORDERED BY",
		CustomerTotalColumn: "TOTAL AMOUNT",
		SummaryColumn:       "I",
		SummaryStartRow:     2,
		SummaryCells:        6,
	}
}

type Workbook struct {
	SheetName   string
	Orders      []domain.OrderRow
	DroppedRows int
	Summary     domain.SummaryStats

	// Customers is nil when CustomersErr is set; callers fall back to
	// grouping Orders.
	Customers    []domain.CustomerRecord
	CustomersErr error
}

func ParseWorkbook(data []byte, layout Layout) (*Workbook, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open excel file: %v", domain.ErrProcessing, err)
	}
	defer file.Close()

	sheet, err := resolveOrdersSheet(file, layout.OrdersSheet)
	if err != nil {
		return nil, err
	}

	rows, err := file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", domain.ErrProcessing, sheet, err)
	}
	orders, dropped, err := parseOrderRows(rows)
	if err != nil {
		return nil, err
	}

	book := &Workbook{
		SheetName:   sheet,
		Orders:      orders,
		DroppedRows: dropped,
		Summary:     readSummary(file, sheet, layout),
	}
	book.Customers, book.CustomersErr = parseCustomers(file, layout)
	return book, nil
}

func resolveOrdersSheet(file *excelize.File, name string) (string, error) {
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: excel file has no sheets", domain.ErrProcessing)
	}
	for _, sheet := range sheets {
		if sheet == name {
			return sheet, nil
		}
	}
	return sheets[0], nil
}

func parseOrderRows(rows [][]string) ([]domain.OrderRow, int, error) {
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: orders sheet is empty", domain.ErrProcessing)
	}

	colMap := mapColumns(rows[0])
	if _, ok := colMap["date"]; !ok {
		return nil, 0, fmt.Errorf("%w: missing required column: DATE", domain.ErrProcessing)
	}
	if _, ok := colMap["amount"]; !ok {
		return nil, 0, fmt.Errorf("%w: missing required column: AMOUNT", domain.ErrProcessing)
	}
	itemIdx, hasItem := colMap["item_name"]
	customerIdx, hasCustomer := colMap["ordered_by"]
	if !hasItem {
		itemIdx = -1
	}
	if !hasCustomer {
		customerIdx = -1
	}

	result := make([]domain.OrderRow, 0, len(rows)-1)
	dropped := 0
	lastDate := ""
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		if isBlankRow(cells, colMap["date"], itemIdx, colMap["amount"], customerIdx) {
			continue
		}

		rawDate := strings.TrimSpace(readCell(cells, colMap["date"]))
		if rawDate == "" {
			rawDate = lastDate
		}
		lastDate = rawDate

		date, ok := parseDate(rawDate)
		if !ok {
			dropped++
			continue
		}

		result = append(result, domain.OrderRow{
			Date:      date,
			ItemName:  strings.TrimSpace(readCell(cells, itemIdx)),
			Amount:    parseAmount(readCell(cells, colMap["amount"])),
			OrderedBy: strings.TrimSpace(readCell(cells, customerIdx)),
		})
	}
	return result, dropped, nil
}

func readSummary(file *excelize.File, sheet string, layout Layout) domain.SummaryStats {
	values := make(map[string]int64, len(summaryFields))
	count := layout.SummaryCells
	if count > len(summaryFields) {
		count = len(summaryFields)
	}
	for offset := 0; offset < count; offset++ {
		ref, err := excelize.JoinCellName(layout.SummaryColumn, layout.SummaryStartRow+offset)
		if err != nil {
			continue
		}
		raw, err := file.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		values[summaryFields[offset]] = parseSummaryInt(raw)
	}
	return domain.SummaryStats{
		TotalPaid:         values["total_paid"],
		PendingOrders:     values["pending_orders"],
		TotalDelivered:    values["total_delivered"],
		TotalSalesAllTime: values["total_sales_all_time"],
		TotalDue:          values["total_due"],
	}
}

func parseCustomers(file *excelize.File, layout Layout) ([]domain.CustomerRecord, error) {
	found := false
	for _, sheet := range file.GetSheetList() {
		if sheet == layout.CustomersSheet {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("sheet %q not found", layout.CustomersSheet)
	}

	rows, err := file.GetRows(layout.CustomersSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", layout.CustomersSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", layout.CustomersSheet)
	}

	nameIdx, totalIdx, ordersIdx := -1, -1, -1
	wantName := normalizeHeader(layout.CustomerNameColumn)
	wantTotal := normalizeHeader(layout.CustomerTotalColumn)
	for idx, col := range rows[0] {
		switch normalizeHeader(col) {
		case wantName:
			if nameIdx < 0 {
				nameIdx = idx
			}
		case wantTotal:
			if totalIdx < 0 {
				totalIdx = idx
			}
		case "total orders", "orders":
			if ordersIdx < 0 {
				ordersIdx = idx
			}
		}
	}
	if nameIdx < 0 || totalIdx < 0 {
		return nil, fmt.Errorf(
			"sheet %q must contain %q and %q columns",
			layout.CustomersSheet,
			layout.CustomerNameColumn,
			layout.CustomerTotalColumn,
		)
	}

	result := make([]domain.CustomerRecord, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(readCell(cells, nameIdx))
		if name == "" {
			continue
		}

		total := decimal.Zero
		if raw := strings.TrimSpace(readCell(cells, totalIdx)); raw != "" {
			parsed, err := parseDecimal(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid %s: %w", index+1, layout.CustomerTotalColumn, err)
			}
			total = parsed
		}

		record := domain.CustomerRecord{Name: name, TotalSpent: total}
		if ordersIdx >= 0 {
			if raw := strings.TrimSpace(readCell(cells, ordersIdx)); raw != "" {
				if parsed, err := parseDecimal(raw); err == nil {
					orders := int(parsed.IntPart())
					record.TotalOrders = &orders
				}
			}
		}
		result = append(result, record)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalSpent.GreaterThan(result[j].TotalSpent)
	})
	return result, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// isBlankRow only looks at the order columns so that rows holding nothing
// but summary cells are not mistaken for orders.
func isBlankRow(row []string, columns ...int) bool {
	for _, idx := range columns {
		if strings.TrimSpace(readCell(row, idx)) != "" {
			return false
		}
	}
	return true
}

func parseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// parseAmount never fails: blank or malformed amounts count as zero.
func parseAmount(raw string) decimal.Decimal {
	value, err := parseDecimal(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	parsed, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	return parsed, nil
}

func parseSummaryInt(raw string) int64 {
	value, err := parseDecimal(raw)
	if err != nil {
		return 0
	}
	return value.IntPart()
}
