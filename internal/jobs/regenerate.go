package jobs

import (
	"context"
	"fmt"

	"github.com/costbook/reconciler/internal/installment"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/google/uuid"
)

// Regenerate replaces all installments of a template with a fresh expansion.
//
// This is the repair for systematically wrong installments, for example
// drifted dates: every non-template entry sharing the template's identity is
// deleted unconditionally, then the template is expanded again and the result
// inserted. Since expansion is a pure function of the template, regeneration
// can be re-run any number of times.
func (j *Jobs) Regenerate(ctx context.Context, templateID uuid.UUID) (Report, error) {
	report := Report{Job: "regenerate", DryRun: !j.opts.Execute}

	template, err := j.client.Entry(ctx, templateID)
	if err != nil {
		return report, fmt.Errorf("fetching template %s: %w", templateID, err)
	}

	if !template.IsTemplate || template.IsMalformedTemplate() {
		report.Skipped++
		report.log()
		return report, nil
	}

	existing, err := j.client.Entries(ctx, ledger.Filter{
		Description:  template.Description,
		CostCenterID: template.CostCenterID,
		IsTemplate:   ledger.Bool(false),
	})
	if err != nil {
		return report, fmt.Errorf("fetching installments of template %s: %w", templateID, err)
	}

	j.debugDump(report.Job, existing)

	if !j.opts.Execute {
		report.Kept = 1
		report.Removed = len(existing)
		report.Inserted = *template.DurationMonths - 1
		report.log()
		return report, nil
	}

	for _, entry := range existing {
		if err := j.client.Delete(ctx, entry.ID); err != nil {
			report.fail("delete", entry, err)
			continue
		}
		report.Removed++
		rowsTotal.WithLabelValues(report.Job, "removed").Inc()
	}

	// Re-fetch so the expansion starts from the template as it is now,
	// not as it was before the deletes ran.
	template, err = j.client.Entry(ctx, templateID)
	if err != nil {
		return report, fmt.Errorf("re-fetching template %s: %w", templateID, err)
	}
	report.Kept = 1

	fresh, err := installment.Expand(template)
	if err != nil {
		report.Skipped++
		report.log()
		return report, nil
	}

	for _, entry := range fresh {
		entry := entry
		if err := j.client.Create(ctx, &entry); err != nil {
			report.fail("insert", entry, err)
			continue
		}
		report.Inserted++
		rowsTotal.WithLabelValues(report.Job, "inserted").Inc()
	}

	report.log()
	return report, nil
}
