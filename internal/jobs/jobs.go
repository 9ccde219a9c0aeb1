// Package jobs implements the reconciliation jobs repairing the ledger.
//
// Every job runs the same pipeline: fetch the candidate entries from the
// ledger, compute the corrective delta with pure functions, and apply the
// delta row by row. Dry-run and execute mode share the fetch and compute
// phases, so a dry-run report is a trustworthy preview of what execute mode
// would do.
//
// A failed fetch aborts the job before any write. A failed row write never
// aborts the job: it is logged, counted and the job moves on. Re-running a
// job recomputes the delta from the state the store is in by then, so
// partial application is repaired by simply running again.
package jobs

import (
	"fmt"

	"github.com/costbook/reconciler/internal/ledger"
	"github.com/costbook/reconciler/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Options controls how a job runs.
type Options struct {
	// Execute applies the computed delta. Without it the job stops after
	// the compute phase and only reports what it would do.
	Execute bool

	// Debug dumps the raw candidate entries before computation.
	Debug bool
}

// Jobs runs reconciliation jobs against a ledger store.
type Jobs struct {
	client ledger.Client
	opts   Options
}

// New returns a job runner using the given ledger client.
func New(client ledger.Client, opts Options) *Jobs {
	return &Jobs{client: client, opts: opts}
}

// Failure records one row write that did not succeed.
type Failure struct {
	Op          string    `json:"op"`
	EntryID     uuid.UUID `json:"entryId"`
	Description string    `json:"description"`
	Error       string    `json:"error"`
}

// Report summarizes what a job did, or in dry-run mode, what it would do.
type Report struct {
	Job      string    `json:"job"`
	DryRun   bool      `json:"dryRun"`
	Kept     int       `json:"kept"`
	Removed  int       `json:"removed"`
	Inserted int       `json:"inserted"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Failures []Failure `json:"failures,omitempty"`
}

// Failed returns the number of failed row writes.
func (r Report) Failed() int {
	return len(r.Failures)
}

func (r *Report) fail(op string, entry models.Entry, err error) {
	failure := Failure{
		Op:          op,
		EntryID:     entry.ID,
		Description: entry.Description,
		Error:       err.Error(),
	}
	r.Failures = append(r.Failures, failure)

	rowsTotal.WithLabelValues(r.Job, "failed").Inc()
	log.Warn().
		Str("job", r.Job).
		Str("op", op).
		Str("entry", entry.ID.String()).
		Str("description", entry.Description).
		Err(err).
		Msg("row write failed")
}

func (r Report) log() {
	log.Info().
		Str("job", r.Job).
		Bool("dryRun", r.DryRun).
		Int("kept", r.Kept).
		Int("removed", r.Removed).
		Int("inserted", r.Inserted).
		Int("updated", r.Updated).
		Int("skipped", r.Skipped).
		Int("failed", r.Failed()).
		Msg("job finished")
}

var rowsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reconciler_job_rows_total",
		Help: "How many ledger rows were touched, partitioned by job and action.",
	},
	[]string{"job", "action"},
)

// RegisterMetrics registers the job metrics with the default Prometheus
// registry.
func RegisterMetrics() error {
	if err := prometheus.Register(rowsTotal); err != nil {
		return fmt.Errorf("could not register job metrics with Prometheus: %w", err)
	}

	return nil
}

// UnregisterMetrics unregisters the job metrics.
//
// This is needed to cleanly exit.
func UnregisterMetrics() bool {
	return prometheus.Unregister(rowsTotal)
}

// debugDump logs the raw candidate entries before the compute phase.
func (j *Jobs) debugDump(job string, entries []models.Entry) {
	if !j.opts.Debug {
		return
	}

	for _, entry := range entries {
		log.Debug().
			Str("job", job).
			Str("entry", entry.ID.String()).
			Str("description", entry.Description).
			Str("costCenter", entry.CostCenterID).
			Str("date", entry.Date.String()).
			Str("value", entry.Value.String()).
			Bool("isTemplate", entry.IsTemplate).
			Msg("candidate")
	}
}
