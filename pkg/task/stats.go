package task

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"
)

// Duration category thresholds, in milliseconds. A completed task is short
// when its completion time is at most ShortMax, medium when above ShortMax
// and below MediumMax, long from MediumMax up. MediumMax is the 60-minute
// variant of the medium/long boundary.
const (
	ShortMax  int64 = 30 * 60 * 1000
	MediumMax int64 = 60 * 60 * 1000
)

const dateLayout = "2006-01-02"

// TaskCategories is a histogram of completed tasks over duration buckets.
type TaskCategories struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

// DayCount is one calendar day with its completion count.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// WeekStats is one calendar week of completion counts, keyed by the
// Sunday-aligned start of the week.
type WeekStats struct {
	WeekStart string     `json:"weekStart"` // YYYY-MM-DD
	Days      []DayCount `json:"days"`      // ascending by date
}

// Stats is the derived report over all completed tasks. It is recomputed on
// every query and never persisted.
type Stats struct {
	ShortestTask          Task           `json:"shortestTask"`
	LongestTask           Task           `json:"longestTask"`
	AverageCompletionTime float64        `json:"averageCompletionTime"`
	TaskCategories        TaskCategories `json:"taskCategories"`
	TasksCompletedByWeek  []WeekStats    `json:"tasksCompletedByWeek"`
}

type timedTask struct {
	Task
	completion int64
}

// Stats builds the statistics report over all completed tasks.
//
// Completion time per task is defined_time - remaining_time; an absent
// remaining_time counts as zero, an unparseable one is a validation error.
// With zero completed tasks the average would be a division by zero, so the
// report fails with ErrNoCompletedTasks instead. Tasks with an invalid or
// missing completed_at are skipped from the weekly calendar with a warning,
// never aborting the whole report. All calendar math is done in UTC.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	completed, err := s.store.FindByStatus(ctx, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, ErrNoCompletedTasks
	}

	timed := make([]timedTask, 0, len(completed))
	var total int64
	for _, t := range completed {
		ct, err := completionTime(t)
		if err != nil {
			return nil, err
		}
		timed = append(timed, timedTask{Task: t, completion: ct})
		total += ct
	}

	// Ascending by completion time, ties broken by id for a total order.
	sort.SliceStable(timed, func(i, j int) bool {
		if timed[i].completion != timed[j].completion {
			return timed[i].completion < timed[j].completion
		}
		return timed[i].ID < timed[j].ID
	})

	var categories TaskCategories
	for _, t := range timed {
		switch {
		case t.completion <= ShortMax:
			categories.Short++
		case t.completion < MediumMax:
			categories.Medium++
		default:
			categories.Long++
		}
	}

	return &Stats{
		ShortestTask:          timed[0].Task,
		LongestTask:           timed[len(timed)-1].Task,
		AverageCompletionTime: float64(total) / float64(len(timed)),
		TaskCategories:        categories,
		TasksCompletedByWeek:  s.weeklyCalendar(completed),
	}, nil
}

// completionTime returns the elapsed work duration of a completed task in
// milliseconds.
func completionTime(t Task) (int64, error) {
	defined, err := parseMillis(t.DefinedTime)
	if err != nil {
		return 0, fmt.Errorf("%w: task %d defined_time: %v", ErrValidation, t.ID, err)
	}
	var remaining int64
	if t.RemainingTime != nil {
		remaining, err = parseMillis(*t.RemainingTime)
		if err != nil {
			return 0, fmt.Errorf("%w: task %d remaining_time: %v", ErrValidation, t.ID, err)
		}
	}
	return defined - remaining, nil
}

// weeklyCalendar groups completions by Sunday-aligned week. On first
// encounter of a week all seven days are materialized at count zero, minus
// any day strictly after today; the matching day is then incremented. Weeks
// come back in chronological order, days ascending within each week.
func (s *Service) weeklyCalendar(completed []Task) []WeekStats {
	today := dateOnly(s.now().UTC())
	byWeek := map[string][]DayCount{}

	for _, t := range completed {
		if t.CompletedAt == nil || t.CompletedAt.IsZero() {
			log.Printf("skipping task %d in weekly stats: invalid completed_at", t.ID)
			continue
		}
		done := t.CompletedAt.UTC()
		weekStart := startOfWeek(done)
		key := weekStart.Format(dateLayout)
		day := done.Format(dateLayout)

		if _, ok := byWeek[key]; !ok {
			days := make([]DayCount, 0, 7)
			for i := 0; i < 7; i++ {
				d := weekStart.AddDate(0, 0, i)
				if d.After(today) {
					continue // week in progress, only elapsed days
				}
				days = append(days, DayCount{Date: d.Format(dateLayout)})
			}
			byWeek[key] = days
		}

		found := false
		for i := range byWeek[key] {
			if byWeek[key][i].Date == day {
				byWeek[key][i].Count++
				found = true
				break
			}
		}
		if !found {
			// The day was clipped as future; completed_at should never be in
			// the future, but tolerate it rather than losing the count.
			byWeek[key] = append(byWeek[key], DayCount{Date: day, Count: 1})
		}
	}

	weeks := make([]WeekStats, 0, len(byWeek))
	for key, days := range byWeek {
		sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
		weeks = append(weeks, WeekStats{WeekStart: key, Days: days})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekStart < weeks[j].WeekStart })
	return weeks
}

// startOfWeek returns midnight UTC of the Sunday on or before t.
func startOfWeek(t time.Time) time.Time {
	d := dateOnly(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
