package domain

import (
	"strings"
	"time"
)

// ReportPeriod задаёт окно, за которое строится отчёт.
type ReportPeriod string

const (
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
)

// ParsePeriod проверяет название периода.
func ParsePeriod(s string) (ReportPeriod, error) {
	switch p := ReportPeriod(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeekly, PeriodMonthly:
		return p, nil
	default:
		return "", Invalid("Invalid period specified.")
	}
}

// Window возвращает границы периода, заканчивающегося в now.
func (p ReportPeriod) Window(now time.Time) (time.Time, time.Time) {
	switch p {
	case PeriodMonthly:
		return now.AddDate(0, -1, 0), now
	default:
		return now.AddDate(0, 0, -7), now
	}
}
