package harness

import (
	"github.com/roach88/markerset/internal/engine"
	"github.com/roach88/markerset/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when expect and every assertion matched.
	Pass bool `json:"pass"`

	// Records is the finalized output in order.
	Records []ir.Record `json:"records"`

	// RecordsHash is ir.RecordSetHash(Records).
	RecordsHash string `json:"records_hash"`

	// Stats are the engine counters at finalize.
	Stats engine.Stats `json:"stats"`

	// Errors lists every mismatch. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Records: []ir.Record{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Columns returns the output in columnar form.
func (r *Result) Columns() ir.Columns {
	return ir.Transpose(r.Records)
}
