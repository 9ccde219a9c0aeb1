package jobs

import (
	"context"
	"fmt"

	"github.com/costbook/reconciler/internal/duplicate"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/costbook/reconciler/internal/models"
)

// DeduplicateInstallments removes expense entries duplicating another entry's
// logical identity. The oldest copy of each group survives.
func (j *Jobs) DeduplicateInstallments(ctx context.Context) (Report, error) {
	report := Report{Job: "dedup-installments", DryRun: !j.opts.Execute}

	entries, err := j.client.Entries(ctx, ledger.Filter{Kind: models.KindExpense})
	if err != nil {
		return report, fmt.Errorf("fetching expense entries: %w", err)
	}

	j.debugDump(report.Job, entries)

	// Templates without a usable duration never take part in deletion.
	candidates := make([]models.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsMalformedTemplate() {
			report.Skipped++
			continue
		}
		candidates = append(candidates, entry)
	}

	resolution := duplicate.Resolve(candidates, duplicate.InstallmentKeyOf, duplicate.KeepOldest)
	report.Kept = len(resolution.Keep)

	if !j.opts.Execute {
		report.Removed = len(resolution.Remove)
		report.log()
		return report, nil
	}

	for _, entry := range resolution.Remove {
		if err := j.client.Delete(ctx, entry.ID); err != nil {
			report.fail("delete", entry, err)
			continue
		}
		report.Removed++
		rowsTotal.WithLabelValues(report.Job, "removed").Inc()
	}

	report.log()
	return report, nil
}

// DeduplicateTemplates enforces that at most one template exists per
// recurring expense. The template with the largest absolute value survives;
// losing templates are deleted together with the installments they generated.
func (j *Jobs) DeduplicateTemplates(ctx context.Context) (Report, error) {
	report := Report{Job: "dedup-templates", DryRun: !j.opts.Execute}

	templates, err := j.client.Entries(ctx, ledger.Filter{IsTemplate: ledger.Bool(true)})
	if err != nil {
		return report, fmt.Errorf("fetching templates: %w", err)
	}

	j.debugDump(report.Job, templates)

	candidates := make([]models.Entry, 0, len(templates))
	for _, template := range templates {
		if template.IsMalformedTemplate() {
			report.Skipped++
			continue
		}
		candidates = append(candidates, template)
	}

	resolution := duplicate.Resolve(candidates, duplicate.TemplateKeyOf, duplicate.KeepLargestValue)
	report.Kept = len(resolution.Keep)

	// A losing template's expansion would be orphaned by its deletion, so
	// the cascade computes it here: the non-template entries sharing the
	// template's identity and carrying its value.
	remove := resolution.Remove
	for _, template := range resolution.Remove {
		installments, err := j.cascadeOf(ctx, template)
		if err != nil {
			return report, err
		}
		remove = append(remove, installments...)
	}

	if !j.opts.Execute {
		report.Removed = len(remove)
		report.log()
		return report, nil
	}

	for _, entry := range remove {
		if err := j.client.Delete(ctx, entry.ID); err != nil {
			report.fail("delete", entry, err)
			continue
		}
		report.Removed++
		rowsTotal.WithLabelValues(report.Job, "removed").Inc()
	}

	report.log()
	return report, nil
}

// cascadeOf returns the installments generated from a template: the
// non-template entries sharing its description and cost center whose value
// matches the template's.
//
// The value check keeps the surviving template's expansion alive. Both
// templates of a duplicated pair share description and cost center, but a
// generated installment carries the value of the template it came from.
func (j *Jobs) cascadeOf(ctx context.Context, template models.Entry) ([]models.Entry, error) {
	entries, err := j.client.Entries(ctx, ledger.Filter{
		Description:  template.Description,
		CostCenterID: template.CostCenterID,
		IsTemplate:   ledger.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching installments of template %s: %w", template.ID, err)
	}

	installments := make([]models.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Value.Equal(template.Value) {
			installments = append(installments, entry)
		}
	}

	return installments, nil
}
