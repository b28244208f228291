package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellKind tells which member of Cell is set.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one value of a tabular row. Spreadsheet backends hand back text
// or numbers for the same column depending on how the value was typed in,
// so rows keep the distinction instead of flattening everything to strings.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

func Number(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n}
}

func Empty() Cell {
	return Cell{}
}

// CellFromValue converts a raw value coming from a store driver.
func CellFromValue(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Empty()
	case Cell:
		return t
	case string:
		if t == "" {
			return Empty()
		}
		return Text(t)
	case []byte:
		if len(t) == 0 {
			return Empty()
		}
		return Text(string(t))
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case bool:
		if t {
			return Text("TRUE")
		}
		return Text("FALSE")
	default:
		return Text(fmt.Sprint(t))
	}
}

// Int coerces the cell to an integer. Text is read up to the first
// non-digit after an optional sign, numbers are truncated toward zero.
func (c Cell) Int() (int64, bool) {
	switch c.Kind {
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return 0, false
		}
		if c.Number >= math.MaxInt64 || c.Number <= math.MinInt64 {
			return 0, false
		}
		return int64(c.Number), true
	case CellText:
		return leadingInt(c.Text)
	default:
		return 0, false
	}
}

// String renders the cell the way a spreadsheet displays it.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Value returns the cell as a plain Go value for drivers and encoders.
func (c Cell) Value() any {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		if c.Number == math.Trunc(c.Number) && math.Abs(c.Number) < 1<<53 {
			return int64(c.Number)
		}
		return c.Number
	default:
		return nil
	}
}

func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
