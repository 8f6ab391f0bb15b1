package task

import (
	"context"
	"time"
)

// SeedTasks inserts the demo dataset: one planned task plus a week of
// completed work spread over several days, enough to exercise every duration
// bucket and the weekly calendar. Returns the number of tasks inserted.
func (s *Service) SeedTasks(ctx context.Context) (int64, error) {
	return s.store.CreateMany(ctx, seedTasks())
}

func seedTasks() []Task {
	rows := []struct {
		name, desc, defined, remaining, started, completed string
	}{
		{"Smoke-test the app", "Verify the app works end to end", "1800000", "", "", ""},
		{"Delete-task option", "Add an option to delete a task", "900000", "0", "2024-09-01T08:00:00Z", "2024-09-01T08:15:00Z"},
		{"Add new feature", "Implement a new feature in the app", "1800000", "0", "2024-09-01T09:00:00Z", "2024-09-01T09:30:00Z"},
		{"Code review", "Review the code from the last delivery", "3600000", "0", "2024-09-01T10:00:00Z", "2024-09-01T11:00:00Z"},
		{"Update documentation", "Bring the project docs up to date", "7200000", "0", "2024-09-01T13:00:00Z", "2024-09-01T15:00:00Z"},
		{"Fix reported bugs", "Fix the bugs users reported", "1500000", "300000", "2024-09-01T15:30:00Z", "2024-09-01T16:00:00Z"},
		{"Optimize database queries", "Improve query performance", "3600000", "720000", "2024-09-02T09:00:00Z", "2024-09-02T10:00:00Z"},
		{"Refactor API code", "Refactor the API for maintainability", "5400000", "1080000", "2024-09-02T11:00:00Z", "2024-09-02T12:30:00Z"},
		{"Unit tests", "Write and run unit tests", "1800000", "0", "2024-09-02T13:00:00Z", "2024-09-02T13:30:00Z"},
		{"UI design", "Design the new user interface", "7200000", "0", "2024-09-02T14:00:00Z", "2024-09-02T16:00:00Z"},
		{"Security review", "Run a security audit on the system", "3600000", "720000", "2024-09-03T09:00:00Z", "2024-09-03T10:00:00Z"},
		{"Update dependencies", "Update the project dependencies", "1500000", "0", "2024-09-03T11:00:00Z", "2024-09-03T11:25:00Z"},
		{"Plan next iteration", "Plan the tasks for the next iteration", "1800000", "0", "2024-09-03T12:00:00Z", "2024-09-03T12:30:00Z"},
		{"Requirements review", "Review and update project requirements", "3600000", "0", "2024-09-03T13:00:00Z", "2024-09-03T14:00:00Z"},
		{"Deploy to production", "Ship the new version to production", "7200000", "0", "2024-09-04T09:00:00Z", "2024-09-04T11:00:00Z"},
		{"Configure database", "Set up the database for the new environment", "3600000", "720000", "2024-09-04T11:30:00Z", "2024-09-04T12:30:00Z"},
		{"Run backup", "Back up the database", "1500000", "300000", "2024-09-04T13:00:00Z", "2024-09-04T13:25:00Z"},
		{"Optimize performance", "Improve overall system performance", "5400000", "1080000", "2024-09-04T14:00:00Z", "2024-09-04T15:30:00Z"},
		{"Update user interface", "Refresh the UI with new elements", "1800000", "0", "2024-09-05T09:00:00Z", "2024-09-05T09:30:00Z"},
		{"Review user feedback", "Go through and analyze user feedback", "3600000", "720000", "2024-09-05T10:00:00Z", "2024-09-05T11:00:00Z"},
		{"Implement requested functions", "Add the newly requested functions", "7200000", "0", "2024-09-05T11:30:00Z", "2024-09-05T13:30:00Z"},
		{"Update notification system", "Update the project notification system", "1800000", "0", "2024-09-06T09:00:00Z", "2024-09-06T09:30:00Z"},
		{"Review error logs", "Check error logs and fix problems", "3600000", "0", "2024-09-06T10:00:00Z", "2024-09-06T11:00:00Z"},
		{"Prepare project presentation", "Prepare the project review deck", "5400000", "1080000", "2024-09-06T11:30:00Z", "2024-09-06T13:00:00Z"},
		{"Write technical docs", "Create and update technical documentation", "3600000", "0", "2024-09-06T14:00:00Z", "2024-09-06T15:00:00Z"},
		{"Validate new features", "Review and validate the new features", "1500000", "300000", "2024-09-07T09:00:00Z", "2024-09-07T09:25:00Z"},
		{"Final project review", "Final review and testing before launch", "7200000", "0", "2024-09-07T09:30:00Z", "2024-09-07T11:30:00Z"},
		{"Update server configuration", "Update the production server config", "3600000", "720000", "2024-09-07T12:00:00Z", "2024-09-07T13:00:00Z"},
		{"Security configuration", "Configure security for the new environment", "1800000", "0", "2024-09-07T13:30:00Z", "2024-09-07T14:00:00Z"},
		{"Database adjustments", "Apply the needed database adjustments", "5400000", "1080000", "2024-09-07T14:30:00Z", "2024-09-07T16:00:00Z"},
		{"Final system verification", "Verify the full system before handoff", "3600000", "0", "2024-09-07T16:30:00Z", "2024-09-07T17:30:00Z"},
	}

	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		t := Task{
			Name:          r.name,
			Description:   r.desc,
			Status:        StatusTodo,
			DefinedTime:   r.defined,
			RedefinedTime: r.defined,
		}
		if r.completed != "" {
			t.Status = StatusCompleted
			rem := r.remaining
			t.RemainingTime = &rem
			t.StartedAt = mustTime(r.started)
			t.CompletedAt = mustTime(r.completed)
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func mustTime(v string) *time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err) // seed data is fixed at compile time
	}
	return &t
}
