// Package feed reads and writes event streams for the reconstruction engine.
//
// Two file formats are supported:
//
//	YAML   events: [{at: 1.5, kind: begin, name: stimulus}, ...]
//	JSONL  {"at": 1.5, "kind": "begin", "name": "stimulus"}   (one per line)
//
// Readers check only what is needed to build an ir.Event: a known kind, a
// numeric time and a non-empty name. Timestamps are not checked for order
// and names are free-form; the engine handles whatever arrives.
//
// Validate runs the same shape rules through an embedded CUE schema and
// reports every problem instead of stopping at the first.
package feed
