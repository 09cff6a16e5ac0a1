package calc

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
)

const (
	sciUpper = 1e10
	sciLower = 1e-10
)

// Value is a formatted calculation result. Numeric values marshal as JSON
// numbers, scientific notation marshals as a JSON string.
type Value struct {
	text    string
	numeric bool
}

// String returns the formatted result.
func (v Value) String() string {
	return v.text
}

// IsNumeric reports whether the value marshals as a JSON number.
func (v Value) IsNumeric() bool {
	return v.numeric
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

// IntValue formats an integer result.
func IntValue(n int64) Value {
	return Value{text: strconv.FormatInt(n, 10), numeric: true}
}

// Format renders f for display:
//   - integral values print as integers
//   - |f| > 1e10 or 0 < |f| < 1e-10 print in scientific notation with ten
//     fractional digits
//   - everything else is rounded to ten decimal places
func Format(f float64) Value {
	if f == 0 {
		return Value{text: "0", numeric: true}
	}
	if f == math.Trunc(f) {
		return Value{text: new(big.Float).SetFloat64(f).Text('f', 0), numeric: true}
	}

	abs := math.Abs(f)
	if abs > sciUpper || abs < sciLower {
		return Value{text: strconv.FormatFloat(f, 'e', 10, 64)}
	}

	rounded := math.Round(f*1e10) / 1e10
	return Value{text: strconv.FormatFloat(rounded, 'f', -1, 64), numeric: true}
}
