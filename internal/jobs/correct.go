package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/costbook/reconciler/internal/ledger"
	"github.com/costbook/reconciler/internal/models"
	"github.com/costbook/reconciler/internal/types"
	"github.com/ryanuber/go-glob"
)

// CorrectDates moves every entry whose description matches the glob pattern
// into the given year and month, keeping the day of month. Days past the end
// of the target month clamp to its last day.
func (j *Jobs) CorrectDates(ctx context.Context, pattern string, year int, month time.Month) (Report, error) {
	report := Report{Job: "correct-dates", DryRun: !j.opts.Execute}

	entries, err := j.client.Entries(ctx, ledger.Filter{})
	if err != nil {
		return report, fmt.Errorf("fetching entries: %w", err)
	}

	j.debugDump(report.Job, entries)

	type change struct {
		entry models.Entry
		date  types.Date
	}

	var changes []change
	for _, entry := range entries {
		if !glob.Glob(pattern, entry.Description) {
			continue
		}

		day := entry.Date.Day
		if last := types.DaysIn(year, month); day > last {
			day = last
		}

		target := types.NewDate(year, month, day)
		if entry.Date == target {
			report.Kept++
			continue
		}

		changes = append(changes, change{entry: entry, date: target})
	}

	if !j.opts.Execute {
		report.Updated = len(changes)
		report.log()
		return report, nil
	}

	for _, c := range changes {
		if err := j.client.Update(ctx, c.entry.ID, map[string]any{"date": c.date}); err != nil {
			report.fail("update", c.entry, err)
			continue
		}
		report.Updated++
		rowsTotal.WithLabelValues(report.Job, "updated").Inc()
	}

	report.log()
	return report, nil
}

// RelabelSector overwrites the sector of every entry whose description
// matches the glob pattern. Entries already carrying the sector are left
// alone, so a second run updates nothing.
func (j *Jobs) RelabelSector(ctx context.Context, pattern string, sector string) (Report, error) {
	report := Report{Job: "relabel-sector", DryRun: !j.opts.Execute}

	entries, err := j.client.Entries(ctx, ledger.Filter{})
	if err != nil {
		return report, fmt.Errorf("fetching entries: %w", err)
	}

	j.debugDump(report.Job, entries)

	var changes []models.Entry
	for _, entry := range entries {
		if !glob.Glob(pattern, entry.Description) {
			continue
		}

		if entry.Sector == sector {
			report.Kept++
			continue
		}

		changes = append(changes, entry)
	}

	if !j.opts.Execute {
		report.Updated = len(changes)
		report.log()
		return report, nil
	}

	for _, entry := range changes {
		if err := j.client.Update(ctx, entry.ID, map[string]any{"sector": sector}); err != nil {
			report.fail("update", entry, err)
			continue
		}
		report.Updated++
		rowsTotal.WithLabelValues(report.Job, "updated").Inc()
	}

	report.log()
	return report, nil
}
