package harness

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/markerset/internal/ir"
)

// validIdentifier matches valid SQL identifiers (column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes the full output to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Records  []ir.Record // Full output for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Records) > 0 {
		fmt.Fprintf(&buf, "\nOutput:\n")
		for i, rec := range e.Records {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, rec)
		}
	}

	return buf.String()
}

// assertRecordContains checks that the output holds a record equal to
// assertion.Record.
func assertRecordContains(records []ir.Record, assertion Assertion) error {
	if indexOf(records, *assertion.Record, 0) >= 0 {
		return nil
	}

	return &AssertionError{
		Type:     AssertRecordContains,
		Expected: assertion.Record.String(),
		Actual:   "not found in output",
		Records:  records,
	}
}

// assertRecordOrder checks that the listed records appear in this relative
// order. Records don't need to be consecutive.
func assertRecordOrder(records []ir.Record, assertion Assertion) error {
	pos := -1
	for _, want := range assertion.Records {
		next := indexOf(records, want, pos+1)
		if next < 0 {
			actual := "missing record: " + want.String()
			if indexOf(records, want, 0) >= 0 {
				actual = fmt.Sprintf("%s appears before position %d", want, pos)
			}
			return &AssertionError{
				Type:     AssertRecordOrder,
				Expected: fmt.Sprintf("records in order: %v", assertion.Records),
				Actual:   actual,
				Records:  records,
			}
		}
		pos = next
	}
	return nil
}

// assertRecordCount checks how many records match the optional kind and
// name filters.
func assertRecordCount(records []ir.Record, assertion Assertion) error {
	count := 0
	for _, rec := range records {
		if assertion.Kind != "" && rec.Kind != assertion.Kind {
			continue
		}
		if assertion.Name != "" && rec.Name != assertion.Name {
			continue
		}
		count++
	}

	if count != assertion.Count {
		filter := "records"
		if assertion.Kind != "" {
			filter = string(assertion.Kind) + " " + filter
		}
		if assertion.Name != "" {
			filter += fmt.Sprintf(" named %q", assertion.Name)
		}
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, filter),
			Actual:   fmt.Sprintf("%d", count),
			Records:  records,
		}
	}
	return nil
}

// assertFinalState queries the persisted session with parameterized SQL
// and validates expected column values using subset semantics.
//
// Security: Column names are validated against a whitelist pattern and the
// table against a fixed set, so nothing from the scenario is interpolated
// unchecked.
func assertFinalState(ctx context.Context, db *sql.DB, sessionID string, assertion Assertion) error {
	if assertion.Table != "events" && assertion.Table != "records" {
		return fmt.Errorf("invalid table %q: must be events or records", assertion.Table)
	}

	where := map[string]any{"session_id": sessionID}
	for k, v := range assertion.Where {
		where[k] = v
	}
	whereSQL, whereArgs, err := buildWhereClause(where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", assertion.Table, whereSQL)
	rows, err := db.QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	keys := sortedKeys(assertion.Expect)
	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are sorted
// for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		if where[key] == nil {
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", key))
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, where[key])
	}

	return strings.Join(clauses, " AND "), args, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML value with a SQLite column value.
// YAML decodes 1 as int while a REAL column scans as float64, so numbers
// compare by value.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case bool:
		// SQLite stores booleans as integers
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		act, ok := actual.(bool)
		return ok && exp == act
	}

	return fmt.Sprint(expected) == fmt.Sprint(actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func indexOf(records []ir.Record, want ir.Record, from int) int {
	for i := from; i < len(records); i++ {
		if records[i].Equal(want) {
			return i
		}
	}
	return -1
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides database access for final_state assertions.
type AssertionContext struct {
	DB        *sql.DB
	SessionID string
	Ctx       context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRecordContains:
			err = assertRecordContains(result.Records, assertion)
		case AssertRecordOrder:
			err = assertRecordOrder(result.Records, assertion)
		case AssertRecordCount:
			err = assertRecordCount(result.Records, assertion)
		case AssertFinalState:
			if actx == nil || actx.DB == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.DB, actx.SessionID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
