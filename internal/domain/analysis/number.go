package analysis

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(?:Infinity|\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)$`)
	radixLiteral   = regexp.MustCompile(`^0(?:[xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// coerceNumber converts a raw JSON value like Number(v) || 0: booleans
// count as 1 and 0, null as 0, strings are parsed as numeric literals only
// ("85%" is not a number), single-element arrays unwrap and everything
// else is 0.
func coerceNumber(raw []byte) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return finite(toNumber(v))
}

func toNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		return parseNumber(t)
	case []any:
		switch len(t) {
		case 0:
			return 0
		case 1:
			return toNumber(t[0])
		}
	}
	return math.NaN()
}

// parseNumber follows StringToNumber: surrounding whitespace is ignored,
// the empty string is 0 and anything that is not a literal is NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0
	case radixLiteral.MatchString(s):
		base := map[byte]int{'x': 16, 'o': 8, 'b': 2}[s[1]|0x20]
		n, ok := new(big.Int).SetString(s[2:], base)
		if !ok {
			return math.NaN()
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f
	case decimalLiteral.MatchString(s):
		if strings.HasSuffix(s, "Infinity") {
			if s[0] == '-' {
				return math.Inf(-1)
			}
			return math.Inf(1)
		}
		// overflow yields ±Inf, which is what Number() gives too
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	return math.NaN()
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
