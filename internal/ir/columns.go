package ir

import "fmt"

// Columns is the struct-array form of a record set: three parallel slices
// aligned by index. Order is the chronology; there is no separate ordering
// field.
type Columns struct {
	Kind  []Kind      `json:"type"`
	Name  []string    `json:"name"`
	Times [][]float64 `json:"times"`
}

// Transpose converts records into columns, preserving order.
func Transpose(records []Record) Columns {
	c := Columns{
		Kind:  make([]Kind, len(records)),
		Name:  make([]string, len(records)),
		Times: make([][]float64, len(records)),
	}
	for i, r := range records {
		c.Kind[i] = r.Kind
		c.Name[i] = r.Name
		c.Times[i] = append([]float64(nil), r.Times...)
	}
	return c
}

// Len returns the number of rows.
func (c Columns) Len() int {
	return len(c.Kind)
}

// Records converts columns back into row form.
// Returns error if the three columns differ in length.
func (c Columns) Records() ([]Record, error) {
	if len(c.Name) != len(c.Kind) || len(c.Times) != len(c.Kind) {
		return nil, fmt.Errorf("columns misaligned: type=%d name=%d times=%d",
			len(c.Kind), len(c.Name), len(c.Times))
	}
	out := make([]Record, len(c.Kind))
	for i := range c.Kind {
		out[i] = Record{
			Kind:  c.Kind[i],
			Name:  c.Name[i],
			Times: append([]float64(nil), c.Times[i]...),
		}
	}
	return out, nil
}
