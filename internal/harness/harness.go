package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/markerset/internal/engine"
	"github.com/roach88/markerset/internal/ir"
	"github.com/roach88/markerset/internal/logging"
	"github.com/roach88/markerset/internal/store"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	store     *store.Store
	engine    *engine.Reconstructor
	sessionID string
	logger    *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh engine and a fresh in-memory database.
//
// Execution flow:
// 1. Feed events to the engine and finalize
// 2. Compare against expect, in order
// 3. Persist the session and check the stored record set round-trips
// 4. Replay twice and check the output is deterministic
// 5. Evaluate assertions
//
// Returns an error only when the harness itself fails. Scenario mismatches
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(store.NewFixedGenerator(sessionID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := logging.Discard()
	h := &Harness{
		store:     st,
		engine:    engine.New(engine.WithLogger(logger)),
		sessionID: sessionID,
		logger:    logger,
	}

	ctx := context.Background()
	result := NewResult()

	accepted := h.feed(scenario.Events, result)

	result.Records = h.engine.Finalize()
	result.Stats = h.engine.Stats()
	result.RecordsHash, err = ir.RecordSetHash(result.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to hash records: %w", err)
	}

	if scenario.Expect != nil {
		compareRecords(scenario.Expect, result)
	}

	if err := h.persist(ctx, scenario.Name, accepted, result); err != nil {
		return nil, err
	}

	report, err := engine.VerifyDeterminism(accepted, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to replay: %w", err)
	}
	if !report.Deterministic {
		result.AddError(fmt.Sprintf("replay is not deterministic: %s != %s", report.FirstHash, report.SecondHash))
	}

	actx := &AssertionContext{
		DB:        st.DB(),
		SessionID: sessionID,
		Ctx:       ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// feed applies every event and returns the ones the engine accepted. An
// engine rejection is a scenario failure, not a harness error.
func (h *Harness) feed(events []ir.Event, result *Result) []ir.Event {
	accepted := make([]ir.Event, 0, len(events))
	for i, ev := range events {
		if err := h.engine.Apply(ev); err != nil {
			result.AddError(fmt.Sprintf("events[%d] %s: %v", i, ev, err))
			continue
		}
		h.logger.Debug("event fed", "index", i, "event", ev.String())
		accepted = append(accepted, ev)
	}
	return accepted
}

// persist saves the run and checks that the stored record set hashes the
// same as the in-memory one.
func (h *Harness) persist(ctx context.Context, name string, events []ir.Event, result *Result) error {
	sess, err := h.store.SaveRun(ctx, name, "scenario", events, result.Records)
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	stored, err := h.store.ReadRecords(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to read back records: %w", err)
	}
	storedHash, err := ir.RecordSetHash(stored)
	if err != nil {
		return fmt.Errorf("failed to hash stored records: %w", err)
	}

	if storedHash != result.RecordsHash || sess.RecordsHash != result.RecordsHash {
		result.AddError(fmt.Sprintf("stored record set hash %s does not match output hash %s", storedHash, result.RecordsHash))
	}
	return nil
}

// compareRecords checks the output against the full expected list.
func compareRecords(expect []ir.Record, result *Result) {
	got := result.Records
	if len(got) != len(expect) {
		result.AddError(fmt.Sprintf("expected %d records, got %d: %v", len(expect), len(got), got))
	}

	n := min(len(got), len(expect))
	for i := 0; i < n; i++ {
		if !got[i].Equal(expect[i]) {
			result.AddError(fmt.Sprintf("record[%d]: expected %s, got %s", i, expect[i], got[i]))
		}
	}
}
