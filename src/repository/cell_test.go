package repository

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellInt(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want int64
		ok   bool
	}{
		{"number", Number(7), 7, true},
		{"fractional number truncates", Number(3.9), 3, true},
		{"negative number", Number(-2), -2, true},
		{"NaN", Number(math.NaN()), 0, false},
		{"text", Text("12"), 12, true},
		{"padded text", Text("  42 "), 42, true},
		{"leading digits", Text("15abc"), 15, true},
		{"decimal text", Text("3.7"), 3, true},
		{"signed text", Text("+8"), 8, true},
		{"non numeric text", Text("abc"), 0, false},
		{"sign only", Text("-"), 0, false},
		{"empty", Empty(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.cell.Int()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCellFromValue(t *testing.T) {
	assert.Equal(t, Empty(), CellFromValue(nil))
	assert.Equal(t, Empty(), CellFromValue(""))
	assert.Equal(t, Text("x"), CellFromValue("x"))
	assert.Equal(t, Text("x"), CellFromValue([]byte("x")))
	assert.Equal(t, Number(4), CellFromValue(float64(4)))
	assert.Equal(t, Number(4), CellFromValue(int64(4)))
	assert.Equal(t, Number(4), CellFromValue(4))
	assert.Equal(t, Number(2.5), CellFromValue(json.Number("2.5")))
	assert.Equal(t, Text("TRUE"), CellFromValue(true))
	assert.Equal(t, Text("FALSE"), CellFromValue(false))
}

func TestCellStringAndValue(t *testing.T) {
	assert.Equal(t, "12", Number(12).String())
	assert.Equal(t, "1.5", Number(1.5).String())
	assert.Equal(t, "feed", Text("feed").String())
	assert.Equal(t, "", Empty().String())

	assert.Equal(t, int64(12), Number(12).Value())
	assert.Equal(t, 1.5, Number(1.5).Value())
	assert.Equal(t, "feed", Text("feed").Value())
	assert.Nil(t, Empty().Value())
}
