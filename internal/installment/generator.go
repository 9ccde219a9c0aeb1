// Package installment derives the monthly installment entries a recurring
// expense template implies.
package installment

import (
	"github.com/costbook/reconciler/internal/models"
)

// Expand returns the installment entries implied by a template, in ascending
// installment order.
//
// A template with duration N implies N entries in total: the template itself
// (installment 1) plus N-1 generated entries for the following months. The
// template already exists in the store, so only the generated entries are
// returned. Each one is a copy of the template with the date rolled forward
// by its offset, the template flag cleared and no duration of its own. The
// store assigns IDs and timestamps on insert.
//
// Expand is deterministic: the same template always yields the same entries.
// This is what makes regeneration safe to re-run.
func Expand(template models.Entry) ([]models.Entry, error) {
	if !template.IsTemplate || template.IsMalformedTemplate() {
		return nil, models.ErrMalformedTemplate
	}

	duration := *template.DurationMonths
	entries := make([]models.Entry, 0, duration-1)

	for offset := 1; offset < duration; offset++ {
		entry := template
		entry.DefaultModel = models.DefaultModel{}
		entry.IsTemplate = false
		entry.DurationMonths = nil

		number := offset + 1
		entry.InstallmentNumber = &number
		entry.Date = template.Date.RollForward(offset)

		entries = append(entries, entry)
	}

	return entries, nil
}
