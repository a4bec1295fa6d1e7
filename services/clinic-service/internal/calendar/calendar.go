package calendar

import (
	"sort"
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

// DateKeyFormat is the fixed key for grouping appointments by day.
// Keys are always derived with this layout, never locale formatting,
// so grouping is stable regardless of client locale.
const DateKeyFormat = "2006-01-02"

// PractitionerGroup holds one practitioner's appointments for a single day.
type PractitionerGroup struct {
	PractitionerID   string                `json:"practitioner_id"`
	PractitionerName string                `json:"practitioner_name"`
	Count            int                   `json:"count"`
	Appointments     []model.CalendarEntry `json:"appointments"`
}

// DayBucket is one day cell of the month grid.
type DayBucket struct {
	Date          string              `json:"date"`
	Day           int                 `json:"day"`
	Total         int                 `json:"total"`
	Practitioners []PractitionerGroup `json:"practitioners"`
}

// DateKey returns the grouping key for a timestamp in the clinic's location.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateKeyFormat)
}

// BuildMonthGrid lays out a month's appointments as a weekday-aligned grid.
//
// The returned slice starts with one nil entry per weekday preceding the
// first of the month (Sunday-first, so a month starting on Friday gets
// five nils), followed by exactly one bucket per calendar day. Nil
// entries serialize as JSON null and become blank leading cells in a
// rendered calendar. Every day of the month gets a bucket even when it
// has no appointments.
//
// The month is taken from ref, and all day boundaries are computed in
// ref's location. Entries outside the month are ignored.
func BuildMonthGrid(entries []model.CalendarEntry, ref time.Time) []*DayBucket {
	loc := ref.Location()
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDay := make(map[string][]model.CalendarEntry, len(entries))
	for _, e := range entries {
		key := DateKey(e.StartTime, loc)
		byDay[key] = append(byDay[key], e)
	}

	grid := make([]*DayBucket, 0, int(first.Weekday())+daysInMonth)
	for i := 0; i < int(first.Weekday()); i++ {
		grid = append(grid, nil)
	}

	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, loc)
		key := date.Format(DateKeyFormat)
		bucket := &DayBucket{
			Date:          key,
			Day:           day,
			Practitioners: groupByPractitioner(byDay[key]),
		}
		for _, g := range bucket.Practitioners {
			bucket.Total += g.Count
		}
		grid = append(grid, bucket)
	}
	return grid
}

func groupByPractitioner(entries []model.CalendarEntry) []PractitionerGroup {
	if len(entries) == 0 {
		return []PractitionerGroup{}
	}

	byID := make(map[string]*PractitionerGroup)
	order := make([]string, 0, 4)
	for _, e := range entries {
		g, ok := byID[e.PractitionerID]
		if !ok {
			g = &PractitionerGroup{
				PractitionerID:   e.PractitionerID,
				PractitionerName: e.PractitionerName,
			}
			byID[e.PractitionerID] = g
			order = append(order, e.PractitionerID)
		}
		g.Appointments = append(g.Appointments, e)
		g.Count++
	}

	groups := make([]PractitionerGroup, 0, len(order))
	for _, id := range order {
		g := byID[id]
		sort.Slice(g.Appointments, func(i, j int) bool {
			return g.Appointments[i].StartTime.Before(g.Appointments[j].StartTime)
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].PractitionerName < groups[j].PractitionerName
	})
	return groups
}
