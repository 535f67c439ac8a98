package core

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestCountTotalsSameDaySum(t *testing.T) {
	// Two log rows on the same day sum their counts.
	now := mustParse(t, "2024-01-05T23:00:00Z")
	logs := []Log{
		{ID: "l1", ActivityID: "gym", Count: 1, OccurredAt: mustParse(t, "2024-01-05T08:00:00Z")},
		{ID: "l2", ActivityID: "gym", Count: 2, OccurredAt: mustParse(t, "2024-01-05T19:30:00Z")},
	}

	totals := CountTotals(logs, now)
	if totals.Today != 3 {
		t.Fatalf("today count = %d, want 3", totals.Today)
	}
	if totals.Month != 3 {
		t.Fatalf("month count = %d, want 3", totals.Month)
	}
}

func TestCountTotalsBoundsInclusive(t *testing.T) {
	now := mustParse(t, "2024-03-15T12:00:00Z")
	logs := []Log{
		{Count: 1, OccurredAt: mustParse(t, "2024-03-01T00:00:00Z")}, // first instant of month
		{Count: 1, OccurredAt: time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC)}, // last instant
		{Count: 1, OccurredAt: mustParse(t, "2024-02-29T23:59:59Z")}, // previous month
		{Count: 1, OccurredAt: mustParse(t, "2024-04-01T00:00:00Z")}, // next month
		{Count: 1, OccurredAt: mustParse(t, "2024-03-15T00:00:00Z")}, // midnight today
	}

	totals := CountTotals(logs, now)
	if totals.Month != 3 {
		t.Fatalf("month count = %d, want 3", totals.Month)
	}
	if totals.Today != 1 {
		t.Fatalf("today count = %d, want 1", totals.Today)
	}
}

func TestCountTotalsNoLogs(t *testing.T) {
	totals := CountTotals(nil, mustParse(t, "2024-01-05T23:00:00Z"))
	if totals.Month != 0 || totals.Today != 0 {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestDailySeriesDenseAndOrdered(t *testing.T) {
	now := mustParse(t, "2024-01-05T23:00:00Z")
	logs := []Log{
		{Count: 1, OccurredAt: mustParse(t, "2024-01-05T08:00:00Z")},
		{Count: 2, OccurredAt: mustParse(t, "2024-01-05T19:30:00Z")},
		{Count: 4, OccurredAt: mustParse(t, "2023-12-20T10:00:00Z")},
		{Count: 9, OccurredAt: mustParse(t, "2023-12-01T10:00:00Z")}, // outside window
	}

	series := DailySeries(logs, now, 30)
	if len(series) != 30 {
		t.Fatalf("series length = %d, want 30", len(series))
	}

	// Oldest first, covering [now-29d, now].
	wantFirst := mustParse(t, "2023-12-07T00:00:00Z")
	if !series[0].Date.Equal(wantFirst) {
		t.Fatalf("first bucket = %v, want %v", series[0].Date, wantFirst)
	}
	wantLast := mustParse(t, "2024-01-05T00:00:00Z")
	if !series[29].Date.Equal(wantLast) {
		t.Fatalf("last bucket = %v, want %v", series[29].Date, wantLast)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			t.Fatalf("series not strictly ascending at index %d", i)
		}
	}

	if series[29].Count != 3 {
		t.Fatalf("bucket for 2024-01-05 = %d, want 3", series[29].Count)
	}

	// The series sums to the total count inside the window.
	sum := 0
	for _, b := range series {
		sum += b.Count
	}
	if sum != 7 {
		t.Fatalf("window sum = %d, want 7", sum)
	}
}

func TestDailySeriesNoLogs(t *testing.T) {
	series := DailySeries(nil, mustParse(t, "2024-06-10T12:00:00Z"), 30)
	if len(series) != 30 {
		t.Fatalf("series length = %d, want 30", len(series))
	}
	for i, b := range series {
		if b.Count != 0 {
			t.Fatalf("bucket %d = %d, want 0", i, b.Count)
		}
	}
}

func TestYearHeatmapCountsAndIntensity(t *testing.T) {
	now := mustParse(t, "2024-06-15T12:00:00Z")
	logs := []Log{
		{Count: 1, OccurredAt: mustParse(t, "2024-01-05T08:00:00Z")},
		{Count: 2, OccurredAt: mustParse(t, "2024-01-05T19:00:00Z")},
		{Count: 8, OccurredAt: mustParse(t, "2024-06-01T10:00:00Z")},
		{Count: 1, OccurredAt: mustParse(t, "2023-12-31T23:00:00Z")}, // previous year, ignored
		{Count: 1, OccurredAt: mustParse(t, "2025-01-01T00:00:00Z")}, // next year, ignored
	}

	hm := YearHeatmap(logs, now)
	if hm.Year != 2024 {
		t.Fatalf("year = %d, want 2024", hm.Year)
	}
	if hm.MaxCount != 8 {
		t.Fatalf("max count = %d, want 8", hm.MaxCount)
	}

	byDate := make(map[string]HeatmapCell)
	total := 0
	for _, week := range hm.Weeks {
		for _, cell := range week.Cells {
			if cell.Placeholder {
				continue
			}
			byDate[cell.Date.Format("2006-01-02")] = cell
			total += cell.Count
		}
	}

	if len(byDate) != 366 { // 2024 is a leap year
		t.Fatalf("rendered days = %d, want 366", len(byDate))
	}
	if total != 11 {
		t.Fatalf("year total = %d, want 11", total)
	}

	jan5 := byDate["2024-01-05"]
	if jan5.Count != 3 {
		t.Fatalf("jan 5 count = %d, want 3", jan5.Count)
	}
	if jan5.Level != 2 { // ceil(3/8*4) = 2
		t.Fatalf("jan 5 level = %d, want 2", jan5.Level)
	}
	jun1 := byDate["2024-06-01"]
	if jun1.Level != 4 {
		t.Fatalf("busiest day level = %d, want 4", jun1.Level)
	}
	if byDate["2024-02-02"].Level != 0 {
		t.Fatalf("empty day should have level 0")
	}
}

func TestYearHeatmapLayout(t *testing.T) {
	// 2024-01-01 is a Monday, so the first week starts with one placeholder.
	now := mustParse(t, "2024-06-15T12:00:00Z")
	hm := YearHeatmap(nil, now)

	if hm.MaxCount != 1 {
		t.Fatalf("max count floored at 1, got %d", hm.MaxCount)
	}

	first := hm.Weeks[0]
	if !first.Cells[0].Placeholder {
		t.Fatal("expected placeholder before Monday Jan 1")
	}
	if first.Cells[1].Placeholder || first.Cells[1].Date.Day() != 1 {
		t.Fatalf("expected Jan 1 in Monday column, got %+v", first.Cells[1])
	}
	if first.MonthLabel != "Jan" {
		t.Fatalf("first week label = %q, want Jan", first.MonthLabel)
	}

	// 1 placeholder + 366 days = 367 cells over 53 Sunday-start weeks.
	if len(hm.Weeks) != 53 {
		t.Fatalf("weeks = %d, want 53", len(hm.Weeks))
	}
	last := hm.Weeks[52]
	trailing := 0
	for _, cell := range last.Cells {
		if cell.Placeholder {
			trailing++
		}
	}
	if trailing != 4 {
		t.Fatalf("trailing placeholders = %d, want 4", trailing)
	}

	// Every week containing the 1st of a month carries its label.
	labels := 0
	for _, week := range hm.Weeks {
		hasFirst := false
		for _, cell := range week.Cells {
			if !cell.Placeholder && cell.Date.Day() == 1 {
				hasFirst = true
			}
		}
		if hasFirst && week.MonthLabel == "" {
			t.Fatal("week containing a month start is missing its label")
		}
		if week.MonthLabel != "" {
			labels++
		}
	}
	if labels != 12 {
		t.Fatalf("month labels = %d, want 12", labels)
	}
}

func TestIntensityMonotonic(t *testing.T) {
	maxCount := 13
	prev := 0
	for count := 0; count <= maxCount; count++ {
		level := intensityLevel(count, maxCount)
		if level < prev {
			t.Fatalf("level decreased from %d to %d at count %d", prev, level, count)
		}
		if count > 0 && level == 0 {
			t.Fatalf("non-zero count %d mapped to level 0", count)
		}
		if level > 4 {
			t.Fatalf("level %d above clamp at count %d", level, count)
		}
		prev = level
	}
}
