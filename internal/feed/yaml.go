package feed

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/markerset/internal/ir"
)

type yamlDocument struct {
	Events []yamlEvent `yaml:"events"`
}

// yamlEvent uses a pointer for At so a missing time is distinguishable
// from t=0.
type yamlEvent struct {
	Kind string   `yaml:"kind"`
	At   *float64 `yaml:"at"`
	Name string   `yaml:"name"`
}

func readYAML(r io.Reader, source string) ([]ir.Event, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []ir.Event{}, nil
		}
		return nil, fmt.Errorf("%s: decode yaml: %w", source, err)
	}

	events := make([]ir.Event, 0, len(doc.Events))
	for i, ye := range doc.Events {
		if ye.At == nil {
			return nil, &ParseError{Source: source, Index: i, Message: "missing at"}
		}
		if msg := checkEvent(ye.Kind, ye.Name); msg != "" {
			return nil, &ParseError{Source: source, Index: i, Message: msg}
		}
		events = append(events, ir.Event{
			Kind: ir.EventKind(ye.Kind),
			Time: *ye.At,
			Name: ye.Name,
		})
	}
	return events, nil
}

// WriteYAML encodes events as a YAML feed document.
func WriteYAML(w io.Writer, events []ir.Event) error {
	doc := yamlDocument{Events: make([]yamlEvent, len(events))}
	for i, ev := range events {
		at := ev.Time
		doc.Events[i] = yamlEvent{Kind: string(ev.Kind), At: &at, Name: ev.Name}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
