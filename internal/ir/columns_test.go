package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspose_PreservesOrder(t *testing.T) {
	records := []Record{
		NewInstance(1, "wut"),
		NewMarker("tsst", 2, 3),
		NewMarker("abc", 6),
		NewMarker("def", Sentinel, 7),
	}

	cols := Transpose(records)

	require.Equal(t, 4, cols.Len())
	assert.Equal(t, []Kind{KindInstance, KindMarker, KindMarker, KindMarker}, cols.Kind)
	assert.Equal(t, []string{"wut", "tsst", "abc", "def"}, cols.Name)
	assert.Equal(t, [][]float64{{1}, {2, 3}, {6}, {-1, 7}}, cols.Times)
}

func TestTranspose_Empty(t *testing.T) {
	cols := Transpose(nil)
	assert.Equal(t, 0, cols.Len())
	assert.NotNil(t, cols.Kind)
	assert.NotNil(t, cols.Times)
}

func TestColumns_RecordsRoundTrip(t *testing.T) {
	records := []Record{NewMarker("b", 1, 4), NewMarker("a", 2, 3)}

	back, err := Transpose(records).Records()
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestColumns_RecordsMisaligned(t *testing.T) {
	cols := Columns{
		Kind:  []Kind{KindMarker},
		Name:  []string{"a", "b"},
		Times: [][]float64{{1}},
	}

	_, err := cols.Records()
	assert.ErrorContains(t, err, "misaligned")
}
