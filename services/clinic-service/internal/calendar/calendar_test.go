package calendar

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/medbook-app/medbook/services/clinic-service/internal/model"
)

func entry(practitionerID, practitionerName string, start time.Time, minutes int) model.CalendarEntry {
	return model.CalendarEntry{
		Appointment: model.Appointment{
			ID:             practitionerID + "-" + start.Format("150405"),
			PractitionerID: practitionerID,
			StartTime:      start,
			EndTime:        start.Add(time.Duration(minutes) * time.Minute),
			Status:         model.StatusConfirmed,
		},
		PractitionerName: practitionerName,
	}
}

func TestBuildMonthGrid_March2024(t *testing.T) {
	// March 2024 has 31 days and begins on a Friday, so the grid needs
	// 5 leading blanks (Sun..Thu) before the bucket for the 1st.
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	grid := BuildMonthGrid(nil, ref)

	if len(grid) != 36 {
		t.Fatalf("expected 36 cells (5 padding + 31 days), got %d", len(grid))
	}
	for i := 0; i < 5; i++ {
		if grid[i] != nil {
			t.Fatalf("cell %d should be nil padding", i)
		}
	}
	if grid[5] == nil || grid[5].Date != "2024-03-01" || grid[5].Day != 1 {
		t.Fatalf("first day bucket wrong: %+v", grid[5])
	}
	if last := grid[len(grid)-1]; last == nil || last.Date != "2024-03-31" || last.Day != 31 {
		t.Fatalf("last day bucket wrong: %+v", last)
	}
	for i := 5; i < len(grid); i++ {
		if grid[i] == nil {
			t.Fatalf("day cell %d must not be nil", i)
		}
		if grid[i].Total != 0 || len(grid[i].Practitioners) != 0 {
			t.Fatalf("empty month should have empty buckets, got %+v", grid[i])
		}
	}
}

func TestBuildMonthGrid_LeapFebruary(t *testing.T) {
	ref := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	grid := BuildMonthGrid(nil, ref)

	// Feb 2024: 29 days, the 1st is a Thursday (index 4).
	if len(grid) != 33 {
		t.Fatalf("expected 33 cells (4 padding + 29 days), got %d", len(grid))
	}
	if grid[4] == nil || grid[4].Date != "2024-02-01" {
		t.Fatalf("first day bucket wrong: %+v", grid[4])
	}
	if last := grid[len(grid)-1]; last == nil || last.Date != "2024-02-29" {
		t.Fatalf("leap day bucket wrong: %+v", last)
	}
}

func TestBuildMonthGrid_SundayStartHasNoPadding(t *testing.T) {
	// September 2024 begins on a Sunday, so there is no leading padding.
	ref := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	grid := BuildMonthGrid(nil, ref)

	if len(grid) != 30 {
		t.Fatalf("expected 30 cells, got %d", len(grid))
	}
	if grid[0] == nil || grid[0].Date != "2024-09-01" {
		t.Fatalf("first cell should be day 1, got %+v", grid[0])
	}
}

func TestBuildMonthGrid_GroupsAndCounts(t *testing.T) {
	loc := time.UTC
	day5 := time.Date(2024, 3, 5, 0, 0, 0, 0, loc)
	day12 := time.Date(2024, 3, 12, 0, 0, 0, 0, loc)

	entries := []model.CalendarEntry{
		entry("prac-2", "Dr. Baker", day5.Add(14*time.Hour), 30),
		entry("prac-1", "Dr. Adams", day5.Add(10*time.Hour), 30),
		entry("prac-1", "Dr. Adams", day5.Add(9*time.Hour), 30),
		entry("prac-1", "Dr. Adams", day12.Add(11*time.Hour), 60),
		// Outside March, must be ignored.
		entry("prac-1", "Dr. Adams", time.Date(2024, 4, 1, 9, 0, 0, 0, loc), 30),
	}

	grid := BuildMonthGrid(entries, time.Date(2024, 3, 1, 0, 0, 0, 0, loc))

	bucket5 := grid[5+4] // padding 5, then days 1..4
	if bucket5.Date != "2024-03-05" {
		t.Fatalf("expected bucket for 2024-03-05, got %s", bucket5.Date)
	}
	if bucket5.Total != 3 {
		t.Fatalf("expected 3 appointments on the 5th, got %d", bucket5.Total)
	}
	if len(bucket5.Practitioners) != 2 {
		t.Fatalf("expected 2 practitioner groups, got %d", len(bucket5.Practitioners))
	}
	adams := bucket5.Practitioners[0]
	if adams.PractitionerName != "Dr. Adams" || adams.Count != 2 {
		t.Fatalf("unexpected first group: %+v", adams)
	}
	if !adams.Appointments[0].StartTime.Before(adams.Appointments[1].StartTime) {
		t.Fatal("appointments within a group must be sorted by start time")
	}
	if bucket5.Practitioners[1].PractitionerName != "Dr. Baker" || bucket5.Practitioners[1].Count != 1 {
		t.Fatalf("unexpected second group: %+v", bucket5.Practitioners[1])
	}

	bucket12 := grid[5+11]
	if bucket12.Total != 1 {
		t.Fatalf("expected 1 appointment on the 12th, got %d", bucket12.Total)
	}

	// The sum of per-practitioner counts across the grid equals the
	// number of in-month entries.
	sum := 0
	for _, b := range grid {
		if b == nil {
			continue
		}
		for _, g := range b.Practitioners {
			sum += g.Count
		}
	}
	if sum != 4 {
		t.Fatalf("expected count sum 4, got %d", sum)
	}
}

func TestBuildMonthGrid_PaddingSerializesAsNull(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(BuildMonthGrid(nil, ref))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.HasPrefix(string(raw), "[null,null,null,null,null,{") {
		t.Fatalf("expected 5 leading nulls, got %s", string(raw)[:60])
	}
}

func TestDateKey_FixedFormat(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 2024-03-06 02:30 UTC is still 2024-03-05 in New York.
	utc := time.Date(2024, 3, 6, 2, 30, 0, 0, time.UTC)
	if got := DateKey(utc, ny); got != "2024-03-05" {
		t.Fatalf("expected 2024-03-05, got %s", got)
	}
	if got := DateKey(utc, time.UTC); got != "2024-03-06" {
		t.Fatalf("expected 2024-03-06, got %s", got)
	}
}
