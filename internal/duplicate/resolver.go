// Package duplicate detects duplicated ledger entries and decides which copy
// survives.
package duplicate

import (
	"strings"

	"github.com/costbook/reconciler/internal/models"
	"github.com/costbook/reconciler/internal/types"
	"golang.org/x/exp/slices"
	"golang.org/x/text/unicode/norm"
)

// Resolution partitions a set of entries into the ones to keep and the ones
// to remove. Keep and Remove together are exactly the input set and every
// duplicate group has exactly one survivor in Keep.
type Resolution struct {
	Keep   []models.Entry
	Remove []models.Entry
}

// Resolve groups entries by key and selects one survivor per group.
//
// Groups of size one contribute their sole member to Keep. For larger groups,
// keep picks the survivor and every other member goes to Remove. The output
// preserves the input order so that dry-run reports are stable.
func Resolve[K comparable](entries []models.Entry, keyOf func(models.Entry) K, keep func([]models.Entry) models.Entry) Resolution {
	groups := make(map[K][]models.Entry)
	order := make([]K, 0, len(entries))

	for _, entry := range entries {
		key := keyOf(entry)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry)
	}

	var resolution Resolution
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			resolution.Keep = append(resolution.Keep, group[0])
			continue
		}

		survivor := keep(group)
		resolution.Keep = append(resolution.Keep, survivor)
		for _, entry := range group {
			if entry.ID != survivor.ID {
				resolution.Remove = append(resolution.Remove, entry)
			}
		}
	}

	return resolution
}

// InstallmentKey is the logical identity of an installment. Two entries
// sharing it are always duplicates of each other.
type InstallmentKey struct {
	Description  string
	CostCenterID string
	Date         types.Date
	Value        string
	// InstallmentNumber is 0 for rows predating installment tracking, so
	// such legacy rows only ever collide with other legacy rows.
	InstallmentNumber int
}

// InstallmentKeyOf returns the logical identity of an entry.
func InstallmentKeyOf(entry models.Entry) InstallmentKey {
	key := InstallmentKey{
		Description:  normalize(entry.Description),
		CostCenterID: entry.CostCenterID,
		Date:         entry.Date,
		Value:        entry.Value.String(),
	}

	if entry.InstallmentNumber != nil {
		key.InstallmentNumber = *entry.InstallmentNumber
	}

	return key
}

// TemplateKey identifies the recurring expense a template defines. At most
// one template may exist per key.
type TemplateKey struct {
	Description  string
	CostCenterID string
}

// TemplateKeyOf returns the recurring-expense identity of an entry.
func TemplateKeyOf(entry models.Entry) TemplateKey {
	return TemplateKey{
		Description:  normalize(entry.Description),
		CostCenterID: entry.CostCenterID,
	}
}

// KeepOldest selects the entry with the earliest creation time. The first
// successfully generated copy is the trusted one. Ties go to the smallest ID
// so that repeated runs pick the same survivor.
func KeepOldest(group []models.Entry) models.Entry {
	group = slices.Clone(group)
	slices.SortStableFunc(group, func(a, b models.Entry) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if a.CreatedAt.Before(b.CreatedAt) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return group[0]
}

// KeepLargestValue selects the entry with the largest absolute value: the
// template carrying the real configured amount wins. Among equal amounts the
// newest wins, then the smallest ID.
func KeepLargestValue(group []models.Entry) models.Entry {
	group = slices.Clone(group)
	slices.SortStableFunc(group, func(a, b models.Entry) int {
		if cmp := b.Value.Abs().Cmp(a.Value.Abs()); cmp != 0 {
			return cmp
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if a.CreatedAt.After(b.CreatedAt) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return group[0]
}

// normalize maps equal-looking descriptions onto one key value. Entries come
// in from interactive clients that send both composed and decomposed unicode.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
