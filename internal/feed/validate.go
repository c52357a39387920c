package feed

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Issue is one shape problem found by Validate.
type Issue struct {
	// Line is the 1-based JSONL line; 0 for YAML feeds.
	Line int `json:"line,omitempty"`

	// Message is the CUE diagnostic, including the field path.
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Validator checks feeds against the embedded CUE schema.
type Validator struct {
	ctx   *cue.Context
	feed  cue.Value
	event cue.Value
}

// NewValidator compiles the schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile feed schema: %w", err)
	}
	return &Validator{
		ctx:   ctx,
		feed:  schema.LookupPath(cue.ParsePath("#Feed")),
		event: schema.LookupPath(cue.ParsePath("#Event")),
	}, nil
}

// Validate checks the file at path. A nil error with no issues means the
// feed is well-formed. A non-nil error means the file could not be read.
func Validate(path string) ([]Issue, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	return v.Check(bytes.NewReader(data), format)
}

// Check validates a feed read from r.
func (v *Validator) Check(r io.Reader, format Format) ([]Issue, error) {
	switch format {
	case FormatYAML:
		return v.checkYAML(r)
	case FormatJSONL:
		return v.checkJSONL(r)
	}
	return nil, fmt.Errorf("unsupported feed format %q", format)
}

func (v *Validator) checkYAML(r io.Reader) ([]Issue, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return []Issue{{Message: fmt.Sprintf("invalid yaml: %v", err)}}, nil
	}
	return issuesFrom(0, v.unify(v.feed, doc)), nil
}

func (v *Validator) checkJSONL(r io.Reader) ([]Issue, error) {
	var issues []Issue

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if !gjson.ValidBytes(line) {
			issues = append(issues, Issue{Line: lineNo, Message: "invalid JSON"})
			continue
		}
		issues = append(issues, issuesFrom(lineNo, v.unify(v.event, gjson.ParseBytes(line).Value()))...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return issues, nil
}

func (v *Validator) unify(schema cue.Value, data any) error {
	val := v.ctx.Encode(data)
	if err := val.Err(); err != nil {
		return err
	}
	return schema.Unify(val).Validate(cue.Concrete(true))
}

func issuesFrom(line int, err error) []Issue {
	if err == nil {
		return nil
	}
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		msg := strings.TrimSpace(cueerrors.Details(e, nil))
		issues = append(issues, Issue{Line: line, Message: msg})
	}
	return issues
}
