package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/markerset/internal/ir"
)

// DefaultSessionID is used when a scenario does not set session_id.
const DefaultSessionID = "test-session-default"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Events are fed to the engine in order.
	Events []ir.Event `yaml:"events"`

	// Expect is the complete expected output, compared in order.
	// Nil skips the comparison; an empty list expects no records.
	Expect []ir.Record `yaml:"expect,omitempty"`

	// Assertions check properties of the output.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// SessionID fixes the stored session's ID for final_state queries.
	SessionID string `yaml:"session_id,omitempty"`
}

// Assertion validates the output or the persisted session.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Record is the record to find (record_contains).
	Record *ir.Record `yaml:"record,omitempty"`

	// Records are the records expected in relative order (record_order).
	Records []ir.Record `yaml:"records,omitempty"`

	// Kind and Name filter records (record_count). Empty matches all.
	Kind ir.Kind `yaml:"kind,omitempty"`
	Name string  `yaml:"name,omitempty"`

	// Count is the expected number of matches (record_count).
	Count int `yaml:"count,omitempty"`

	// Table is "events" or "records" (final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one row (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect lists column values the row must have (final_state).
	// Subset match: unlisted columns are ignored.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordContains = "record_contains"
	AssertRecordOrder    = "record_order"
	AssertRecordCount    = "record_count"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml file under dir, walking
// subdirectories, sorted by path. A golden/ directory is skipped. filter
// is an optional glob matched against the file name without extension.
func LoadScenarios(dir, filter string) ([]*Scenario, []string, error) {
	paths, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return nil, nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, paths, nil
}

// FindScenarioFiles lists scenario files under dir, sorted by path.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, ev := range s.Events {
		if !ev.Kind.Valid() {
			return fmt.Errorf("events[%d]: unknown kind %q", i, ev.Kind)
		}
	}

	for i, rec := range s.Expect {
		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateRecord(rec ir.Record) error {
	if rec.Kind != ir.KindInstance && rec.Kind != ir.KindMarker {
		return fmt.Errorf("type must be Instance or Marker, got %q", rec.Kind)
	}
	if len(rec.Times) == 0 || len(rec.Times) > 2 {
		return fmt.Errorf("times must have 1 or 2 elements, got %d", len(rec.Times))
	}
	if rec.Kind == ir.KindInstance && len(rec.Times) != 1 {
		return fmt.Errorf("Instance times must have 1 element, got %d", len(rec.Times))
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecordContains:
		if a.Record == nil {
			return fmt.Errorf("assertions[%d]: record is required for record_contains", index)
		}
		if err := validateRecord(*a.Record); err != nil {
			return fmt.Errorf("assertions[%d].record: %w", index, err)
		}
	case AssertRecordOrder:
		if len(a.Records) < 2 {
			return fmt.Errorf("assertions[%d]: record_order needs at least two records", index)
		}
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
		if a.Kind != "" && a.Kind != ir.KindInstance && a.Kind != ir.KindMarker {
			return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
		}
	case AssertFinalState:
		if a.Table != "events" && a.Table != "records" {
			return fmt.Errorf("assertions[%d]: table must be events or records for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
