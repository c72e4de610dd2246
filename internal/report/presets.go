package report

import (
	"time"

	"dashboard/internal/domain"
)

// PresetRange resolves a date range preset against today. Unknown presets
// behave like this_month; all_time spans the table's first to last order.
func PresetRange(preset string, today time.Time, rows []domain.OrderRow) (time.Time, time.Time) {
	today = dayStart(today)
	switch preset {
	case domain.PresetLast3Months:
		return subtractMonths(today, 2), today
	case domain.PresetLast6Months:
		return subtractMonths(today, 5), today
	case domain.PresetAllTime:
		if len(rows) == 0 {
			return monthStart(today), today
		}
		first, last := rows[0].Date, rows[0].Date
		for _, row := range rows[1:] {
			if row.Date.Before(first) {
				first = row.Date
			}
			if row.Date.After(last) {
				last = row.Date
			}
		}
		return first, last
	default:
		return monthStart(today), today
	}
}

func NormalizePreset(preset string) string {
	switch preset {
	case domain.PresetThisMonth, domain.PresetLast3Months, domain.PresetLast6Months, domain.PresetAllTime:
		return preset
	default:
		return domain.PresetThisMonth
	}
}

// subtractMonths returns the first day of the month n months before t.
func subtractMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}
