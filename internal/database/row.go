package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind tags the database type a cell value carries
type ValueKind string

const (
	KindNull      ValueKind = "null"
	KindInteger   ValueKind = "integer"
	KindFloat     ValueKind = "float"
	KindText      ValueKind = "text"
	KindBoolean   ValueKind = "boolean"
	KindTimestamp ValueKind = "timestamp"
)

// Value is a tagged union over the database types a result cell can hold.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind      ValueKind
	Integer   int64
	Float     float64
	Text      string
	Boolean   bool
	Timestamp time.Time
}

// NullValue returns the null value
func NullValue() Value {
	return Value{Kind: KindNull}
}

// NewValue classifies a raw driver value into a tagged Value.
// database/sql hands back a small closed set of Go types; anything outside
// it is carried as text via fmt so type surprises never drop data.
func NewValue(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindNull}
	case int64:
		return Value{Kind: KindInteger, Integer: v}
	case float64:
		return Value{Kind: KindFloat, Float: v}
	case bool:
		return Value{Kind: KindBoolean, Boolean: v}
	case time.Time:
		return Value{Kind: KindTimestamp, Timestamp: v}
	case []byte:
		return Value{Kind: KindText, Text: string(v)}
	case string:
		return Value{Kind: KindText, Text: v}
	default:
		return Value{Kind: KindText, Text: fmt.Sprintf("%v", v)}
	}
}

// Interface returns the Go value for JSON encoding
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInteger:
		return v.Integer
	case KindFloat:
		return v.Float
	case KindBoolean:
		return v.Boolean
	case KindTimestamp:
		return v.Timestamp
	default:
		return v.Text
	}
}

// Cell is one (column, value) pair in a result row
type Cell struct {
	Column string
	Value  Value
}

// Row is an ordered sequence of cells. Order always matches the result
// metadata column order; a map would lose that, so Row marshals itself.
type Row []Cell

// MarshalJSON encodes the row as a JSON object with keys in column order
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cell := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cell.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(cell.Value.Interface())
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object back into an ordered row. Key order
// in the document becomes cell order. Numbers come back as integer when
// they parse as one, float otherwise; timestamps round-trip as text since
// JSON carries no type for them.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row: expected JSON object, got %v", tok)
	}

	row := Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row: expected object key, got %v", keyTok)
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		row = append(row, Cell{Column: key, Value: valueFromJSON(raw)})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = row
	return nil
}

// valueFromJSON classifies a decoded JSON value into a tagged Value
func valueFromJSON(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBoolean, Boolean: v}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Value{Kind: KindInteger, Integer: i}
		}
		if f, err := v.Float64(); err == nil {
			return Value{Kind: KindFloat, Float: f}
		}
		return Value{Kind: KindText, Text: v.String()}
	case string:
		return Value{Kind: KindText, Text: v}
	default:
		return Value{Kind: KindText, Text: fmt.Sprintf("%v", v)}
	}
}

// Get returns the value for a column name, if present
func (r Row) Get(column string) (Value, bool) {
	for _, cell := range r {
		if cell.Column == column {
			return cell.Value, true
		}
	}
	return Value{}, false
}

// ExecutionResult holds the outcome of one bounded query execution
type ExecutionResult struct {
	Success   bool     `json:"success"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	RowCount  int      `json:"row_count"`
	ElapsedMs float64  `json:"elapsed_ms"`
	Error     string   `json:"error,omitempty"`
}
