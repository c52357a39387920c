package feed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/markerset/internal/ir"
)

// Format identifies a feed encoding.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSONL Format = "jsonl"
)

// ValidFormats lists the accepted --input-format values.
var ValidFormats = []Format{FormatYAML, FormatJSONL}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unknown feed format %q: must be one of %v", s, ValidFormats)
}

// FormatFromPath picks a format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("cannot infer feed format from %q: use .yaml, .yml, .jsonl or .ndjson", path)
}

// ParseError describes a malformed event in a feed.
type ParseError struct {
	// Source is the file path, or "<input>" for readers.
	Source string

	// Line is the 1-based line for JSONL feeds; 0 when unknown.
	Line int

	// Index is the 0-based event position.
	Index int

	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: event %d: %s", e.Source, e.Index, e.Message)
}

// Load reads a whole feed file, choosing the decoder by extension.
func Load(path string) ([]ir.Event, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	return read(f, format, path)
}

// Read decodes a feed from r.
func Read(r io.Reader, format Format) ([]ir.Event, error) {
	return read(r, format, "<input>")
}

func read(r io.Reader, format Format, source string) ([]ir.Event, error) {
	switch format {
	case FormatYAML:
		return readYAML(r, source)
	case FormatJSONL:
		return readJSONL(r, source)
	}
	return nil, fmt.Errorf("unsupported feed format %q", format)
}

// checkEvent applies the minimum rules needed to construct an event.
func checkEvent(kind, name string) string {
	if !ir.EventKind(kind).Valid() {
		return fmt.Sprintf("unknown kind %q (want instance, begin or end)", kind)
	}
	if name == "" {
		return "name must not be empty"
	}
	return ""
}
