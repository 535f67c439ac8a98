package core

import "time"

// The aggregation engine is pure: it transforms a slice of logs into the
// views the presentation layer renders. Every function takes the reference
// instant explicitly so results are deterministic. Calendar-day comparisons
// use the location of the reference instant.

// Totals holds the per-activity counters shown on the dashboard.
type Totals struct {
	Month int
	Today int
}

// DayCount is one bucket of a dense per-day series.
type DayCount struct {
	Date  time.Time
	Count int
}

// HeatmapCell is one day square of the year calendar. Placeholder cells
// pad the first (and last) week so day-of-week columns stay aligned; they
// carry no date and must not render.
type HeatmapCell struct {
	Date        time.Time
	Count       int
	Level       int
	Placeholder bool
}

// HeatmapWeek is a Sunday-start column of seven cells. MonthLabel is set
// when the week contains the first day of a month.
type HeatmapWeek struct {
	MonthLabel string
	Cells      [7]HeatmapCell
}

// Heatmap is the full-year daily occurrence map with intensity bucketing.
type Heatmap struct {
	Year     int
	MaxCount int
	Weeks    []HeatmapWeek
}

// MonthBounds returns the first and last instant of now's calendar month.
func MonthBounds(now time.Time) (start, end time.Time) {
	y, m, _ := now.Date()
	start = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// DayBounds returns midnight and the last instant of now's calendar day.
func DayBounds(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// CountTotals sums log counts inside the current calendar month and the
// current calendar day, both bounds inclusive.
func CountTotals(logs []Log, now time.Time) Totals {
	monthStart, monthEnd := MonthBounds(now)
	dayStart, dayEnd := DayBounds(now)

	var t Totals
	for _, l := range logs {
		at := l.OccurredAt.In(now.Location())
		if !at.Before(monthStart) && !at.After(monthEnd) {
			t.Month += l.Count
		}
		if !at.Before(dayStart) && !at.After(dayEnd) {
			t.Today += l.Count
		}
	}
	return t
}

// DailySeries buckets log counts by local calendar day over the window
// [now-(days-1), now], oldest first. The series is dense: every day is
// present, days without logs have count zero.
func DailySeries(logs []Log, now time.Time, days int) []DayCount {
	if days <= 0 {
		return nil
	}

	today, _ := DayBounds(now)
	series := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-(days-1))
		series[i] = DayCount{Date: day}
		index[dayKey(day)] = i
	}

	for _, l := range logs {
		if i, ok := index[dayKey(l.OccurredAt.In(now.Location()))]; ok {
			series[i].Count += l.Count
		}
	}
	return series
}

// YearHeatmap builds the calendar-year view for the year containing now:
// per-day summed counts laid out as Sunday-start weeks, with a 0-4
// intensity level per day relative to the year's busiest day.
func YearHeatmap(logs []Log, now time.Time) Heatmap {
	loc := now.Location()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	yearEnd := yearStart.AddDate(1, 0, 0)

	counts := make(map[string]int)
	maxCount := 0
	for _, l := range logs {
		at := l.OccurredAt.In(loc)
		if at.Before(yearStart) || !at.Before(yearEnd) {
			continue
		}
		key := dayKey(at)
		counts[key] += l.Count
		if counts[key] > maxCount {
			maxCount = counts[key]
		}
	}
	if maxCount < 1 {
		maxCount = 1
	}

	hm := Heatmap{Year: now.Year(), MaxCount: maxCount}

	var week HeatmapWeek
	col := int(yearStart.Weekday()) // 0 = Sunday
	for i := 0; i < col; i++ {
		week.Cells[i] = HeatmapCell{Placeholder: true}
	}

	for day := yearStart; day.Before(yearEnd); day = day.AddDate(0, 0, 1) {
		count := counts[dayKey(day)]
		week.Cells[col] = HeatmapCell{
			Date:  day,
			Count: count,
			Level: intensityLevel(count, maxCount),
		}
		if day.Day() == 1 {
			week.MonthLabel = day.Format("Jan")
		}
		col++
		if col == 7 {
			hm.Weeks = append(hm.Weeks, week)
			week = HeatmapWeek{}
			col = 0
		}
	}
	if col > 0 {
		for i := col; i < 7; i++ {
			week.Cells[i] = HeatmapCell{Placeholder: true}
		}
		hm.Weeks = append(hm.Weeks, week)
	}

	return hm
}

// intensityLevel maps a daily count onto the 0-4 shading scale:
// ceil(count/max*4), clamped to 4, with 0 reserved for empty days.
func intensityLevel(count, maxCount int) int {
	if count <= 0 {
		return 0
	}
	level := (count*4 + maxCount - 1) / maxCount
	if level > 4 {
		level = 4
	}
	return level
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
