package http

import (
	"time"

	"traccia/internal/core"
	"traccia/internal/services"
)

const dateLayout = "2006-01-02"

// ActivityRequest is the payload for creating or updating an activity.
type ActivityRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// StatusResponse acknowledges a mutation without a richer body.
type StatusResponse struct {
	Status string `json:"status"`
}

// ActivityView exposes a single activity.
type ActivityView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivitySummaryView pairs an activity with its rolling counts.
type ActivitySummaryView struct {
	ActivityView
	MonthCount int `json:"month_count"`
	TodayCount int `json:"today_count"`
}

// ActivityListResponse packages the dashboard list.
type ActivityListResponse struct {
	Items []ActivitySummaryView `json:"items"`
}

// LogView exposes a single occurrence record.
type LogView struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// DayCountView is one bucket of the recent-history series.
type DayCountView struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HeatmapCellView is one day cell of the year heatmap.
type HeatmapCellView struct {
	Date        string `json:"date,omitempty"`
	Count       int    `json:"count"`
	Level       int    `json:"level"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// HeatmapWeekView is a Sunday-first column of seven cells.
type HeatmapWeekView struct {
	MonthLabel string            `json:"month_label,omitempty"`
	Cells      []HeatmapCellView `json:"cells"`
}

// HeatmapView is the full calendar-year heatmap.
type HeatmapView struct {
	Year     int               `json:"year"`
	MaxCount int               `json:"max_count"`
	Weeks    []HeatmapWeekView `json:"weeks"`
}

// ActivityDetailView merges an activity with its history views.
type ActivityDetailView struct {
	Activity ActivityView   `json:"activity"`
	Logs     []LogView      `json:"logs"`
	Series   []DayCountView `json:"series"`
	Heatmap  HeatmapView    `json:"heatmap"`
}

func toActivityView(a core.Activity) ActivityView {
	return ActivityView{
		ID:        a.ID,
		Name:      a.Name,
		Color:     a.Color,
		CreatedAt: a.CreatedAt,
	}
}

func toLogView(l core.Log) LogView {
	return LogView{
		ID:         l.ID,
		ActivityID: l.ActivityID,
		Count:      l.Count,
		OccurredAt: l.OccurredAt,
		CreatedAt:  l.CreatedAt,
	}
}

func toActivityListResponse(list []services.ActivityWithCounts) ActivityListResponse {
	items := make([]ActivitySummaryView, 0, len(list))
	for _, a := range list {
		items = append(items, ActivitySummaryView{
			ActivityView: toActivityView(a.Activity),
			MonthCount:   a.MonthCount,
			TodayCount:   a.TodayCount,
		})
	}
	return ActivityListResponse{Items: items}
}

func toActivityDetailView(detail services.ActivityDetail) ActivityDetailView {
	logs := make([]LogView, 0, len(detail.Logs))
	for _, l := range detail.Logs {
		logs = append(logs, toLogView(l))
	}

	series := make([]DayCountView, 0, len(detail.Series))
	for _, d := range detail.Series {
		series = append(series, DayCountView{
			Date:  d.Date.Format(dateLayout),
			Count: d.Count,
		})
	}

	return ActivityDetailView{
		Activity: toActivityView(detail.Activity),
		Logs:     logs,
		Series:   series,
		Heatmap:  toHeatmapView(detail.Heatmap),
	}
}

func toHeatmapView(h core.Heatmap) HeatmapView {
	weeks := make([]HeatmapWeekView, 0, len(h.Weeks))
	for _, week := range h.Weeks {
		cells := make([]HeatmapCellView, 0, len(week.Cells))
		for _, cell := range week.Cells {
			view := HeatmapCellView{
				Count:       cell.Count,
				Level:       cell.Level,
				Placeholder: cell.Placeholder,
			}
			if !cell.Placeholder {
				view.Date = cell.Date.Format(dateLayout)
			}
			cells = append(cells, view)
		}
		weeks = append(weeks, HeatmapWeekView{
			MonthLabel: week.MonthLabel,
			Cells:      cells,
		})
	}
	return HeatmapView{
		Year:     h.Year,
		MaxCount: h.MaxCount,
		Weeks:    weeks,
	}
}
