package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/roach88/markerset/internal/ir"
)

// maxLineBytes bounds a single JSONL line.
const maxLineBytes = 1 << 20

func readJSONL(r io.Reader, source string) ([]ir.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	events := []ir.Event{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		ev, msg := parseJSONLine(line)
		if msg != "" {
			return nil, &ParseError{Source: source, Line: lineNo, Index: len(events), Message: msg}
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: read jsonl: %w", source, err)
	}
	return events, nil
}

func parseJSONLine(line []byte) (ir.Event, string) {
	if !gjson.ValidBytes(line) {
		return ir.Event{}, "invalid JSON"
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return ir.Event{}, "event must be a JSON object"
	}

	kind := root.Get("kind")
	if kind.Type != gjson.String {
		return ir.Event{}, "kind must be a string"
	}
	at := root.Get("at")
	if at.Type != gjson.Number {
		return ir.Event{}, "at must be a number"
	}
	name := root.Get("name")
	if name.Type != gjson.String {
		return ir.Event{}, "name must be a string"
	}

	if msg := checkEvent(kind.String(), name.String()); msg != "" {
		return ir.Event{}, msg
	}
	return ir.Event{
		Kind: ir.EventKind(kind.String()),
		Time: at.Float(),
		Name: name.String(),
	}, ""
}

// WriteJSONL encodes events one JSON object per line. The output reads back
// with Read(r, FormatJSONL).
func WriteJSONL(w io.Writer, events []ir.Event) error {
	bw := bufio.NewWriter(w)
	for i, ev := range events {
		line, err := encodeJSONLine(ev)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func encodeJSONLine(ev ir.Event) ([]byte, error) {
	line, err := sjson.SetBytes([]byte(`{}`), "at", ev.Time)
	if err != nil {
		return nil, err
	}
	line, err = sjson.SetBytes(line, "kind", string(ev.Kind))
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(line, "name", ev.Name)
}
