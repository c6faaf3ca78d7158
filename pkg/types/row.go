package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row maps column names to scalar values: string, int64, float64, bool or
// nil.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// nullSentinels are string spellings of NULL produced by spreadsheets and
// form posts.
var nullSentinels = map[string]bool{
	"NULL":   true,
	`"NULL"`: true,
	"'NULL'": true,
}

// IsMissing reports whether v stands for an absent value.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return nullSentinels[s]
	}
	return false
}

// FormatKey returns the canonical string form of a primary-key value.
// Numeric-looking values are rounded to an integer string so that keys
// coerced to floats upstream ("12.0", 12.0) compare equal to "12".
func FormatKey(v any) string {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return x
		}
		return strconv.FormatFloat(math.RoundToEven(f), 'f', 0, 64)
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return FormatValue(x)
		}
		return strconv.FormatFloat(math.RoundToEven(x), 'f', 0, 64)
	case float32:
		return FormatKey(float64(x))
	default:
		return FormatValue(v)
	}
}

// FormatValue renders a scalar for comparison and messages. Integral floats
// render without a fraction so 3.0 and int64(3) format alike.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'f', 0, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

// SameValue reports whether two scalars are equal after formatting.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return FormatValue(a) == FormatValue(b)
}

// DeletedRow is one entry of a DeletionRecord.
type DeletedRow struct {
	TableName string `json:"table_name"`
	Row       Row    `json:"row"`
}

// DeletionRecord lists the rows removed by a cascading delete, dependents
// before the rows they reference. The last entry is the requested row.
// Replaying it in reverse as inserts restores the deleted state.
type DeletionRecord []DeletedRow

// DecodeRow parses a JSON object into a Row. Integral numbers become int64,
// other numbers float64; nested objects and arrays are kept as JSON text.
func DecodeRow(data []byte) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}

	row := make(Row, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case json.Number:
			if n, err := x.Int64(); err == nil {
				row[k] = n
				continue
			}
			f, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			row[k] = f
		case map[string]any, []any:
			raw, err := json.Marshal(x)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			row[k] = string(raw)
		default:
			row[k] = x
		}
	}
	return row, nil
}

// DecodeRows parses either a single JSON object or an array of objects.
func DecodeRows(data []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		r, err := DecodeRow(trimmed)
		if err != nil {
			return nil, err
		}
		return []Row{r}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		r, err := DecodeRow(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
