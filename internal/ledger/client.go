// Package ledger abstracts the store holding the ledger entries.
//
// Reconciliation jobs only ever talk to the store through the Client
// interface, so any backend exposing filtered queries and row-level writes
// can serve them.
package ledger

import (
	"context"

	"github.com/costbook/reconciler/internal/models"
	"github.com/google/uuid"
)

// Filter is a conjunction of simple predicates over entry fields. Zero
// values mean "no constraint" for the string fields; the pointer fields
// distinguish "unset" from "false".
type Filter struct {
	Kind         models.Kind
	CostCenterID string
	Description  string
	IsTemplate   *bool

	// HasInstallmentNumber filters on the presence of an installment
	// number, used to separate legacy rows from tracked ones.
	HasInstallmentNumber *bool

	// OrderBy is a column name. Results are ascending unless Descending is
	// set. Limit caps the result size when > 0.
	OrderBy    string
	Descending bool
	Limit      int
}

// Client is the interface to the ledger store.
//
// Every method call is one blocking remote operation. Errors are returned
// verbatim; jobs treat them as retryable by re-running, never as a reason to
// alter a computed delta.
type Client interface {
	// Entries returns all entries matching the filter.
	Entries(ctx context.Context, filter Filter) ([]models.Entry, error)

	// Entry returns a single entry by ID.
	Entry(ctx context.Context, id uuid.UUID) (models.Entry, error)

	// Create inserts an entry. The store assigns the ID and timestamps.
	Create(ctx context.Context, entry *models.Entry) error

	// Update sets the given fields on the entry with the ID. Updating an
	// entry that no longer exists is a no-op.
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error

	// Delete removes the entry with the ID. Deleting an entry that no
	// longer exists is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error

	// UpsertBatch inserts the entries, replacing existing entries with the
	// same ID. Only used for bulk migrations.
	UpsertBatch(ctx context.Context, entries []models.Entry) error
}

// Bool returns a pointer to b for use in filters.
func Bool(b bool) *bool {
	return &b
}
