package models

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange включительный диапазон календарных дат (UTC)
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ParseDateRange разбирает даты в формате YYYY-MM-DD
func ParseDateRange(from, to string) (*DateRange, error) {
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from=%q", ErrInvalidDateRange, from)
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to=%q", ErrInvalidDateRange, to)
	}
	if t.Before(f) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, from, to)
	}
	return &DateRange{From: f, To: t}, nil
}

// LastDays диапазон из days дней, заканчивающийся датой now
func LastDays(now time.Time, days int) *DateRange {
	if days < 1 {
		days = 1
	}
	to := truncateDay(now)
	return &DateRange{From: to.AddDate(0, 0, -(days - 1)), To: to}
}

// Since начало первого дня диапазона в RFC3339
func (r DateRange) Since() string {
	return truncateDay(r.From).Format("2006-01-02T15:04:05Z")
}

// Until последняя секунда последнего дня диапазона в RFC3339
func (r DateRange) Until() string {
	return truncateDay(r.To).Add(24*time.Hour - time.Second).Format("2006-01-02T15:04:05Z")
}

func (r DateRange) String() string {
	return r.From.Format(dateLayout) + ".." + r.To.Format(dateLayout)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Filter параметры выборки, общие для всех страниц одного источника
type Filter struct {
	Range *DateRange
}

// SyncRequest запрос на синхронизацию, формируемый внешним триггером
type SyncRequest struct {
	Domains  []Domain
	Range    *DateRange
	Accounts []Account
	// Trigger источник запуска: http, schedule
	Trigger string
}
