package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errTrailingData = errors.New("trailing data after JSON value")

// node is a parsed JSON value that remembers object member order.
type node struct {
	kind   byte // 'o' object, 'a' array, 's' string, 'n' number, 'b' bool, 'z' null
	str    string
	num    float64
	truth  bool
	keys   []string
	values map[string]*node
	items  []*node
}

// prettyJSON re-encodes body the way a browser renders
// JSON.stringify(JSON.parse(body), null, 2).
func prettyJSON(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	n, err := parseNode(dec)
	if err != nil {
		return "", err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errTrailingData
	}
	var b strings.Builder
	n.write(&b, "")
	return b.String(), nil
}

func parseNode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &node{kind: 'o', values: map[string]*node{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				v, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				// a repeated key keeps its first position and its last value
				if _, seen := n.values[key]; !seen {
					n.keys = append(n.keys, key)
				}
				n.values[key] = v
			}
			_, err := dec.Token()
			return n, err
		case '[':
			n := &node{kind: 'a'}
			for dec.More() {
				v, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				n.items = append(n.items, v)
			}
			_, err := dec.Token()
			return n, err
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return &node{kind: 's', str: t}, nil
	case json.Number:
		f, _ := strconv.ParseFloat(string(t), 64)
		return &node{kind: 'n', num: f}, nil
	case bool:
		return &node{kind: 'b', truth: t}, nil
	default:
		return &node{kind: 'z'}, nil
	}
}

func (n *node) write(b *strings.Builder, indent string) {
	inner := indent + "  "
	switch n.kind {
	case 'o':
		if len(n.keys) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, k := range propertyOrder(n.keys) {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(inner)
			writeString(b, k)
			b.WriteString(": ")
			n.values[k].write(b, inner)
		}
		b.WriteString("\n" + indent + "}")
	case 'a':
		if len(n.items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, v := range n.items {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(inner)
			v.write(b, inner)
		}
		b.WriteString("\n" + indent + "]")
	case 's':
		writeString(b, n.str)
	case 'n':
		b.WriteString(formatNumber(n.num))
	case 'b':
		b.WriteString(strconv.FormatBool(n.truth))
	default:
		b.WriteString("null")
	}
}

// propertyOrder lists array-index keys ascending, then the rest in insertion order.
func propertyOrder(keys []string) []string {
	var indices, rest []string
	for _, k := range keys {
		if isArrayIndex(k) {
			indices = append(indices, k)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool {
		a, _ := strconv.ParseUint(indices[i], 10, 64)
		b, _ := strconv.ParseUint(indices[j], 10, 64)
		return a < b
	})
	return append(indices, rest...)
}

func isArrayIndex(k string) bool {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return false
	}
	v, err := strconv.ParseUint(k, 10, 64)
	return err == nil && v < math.MaxUint32
}

// formatNumber prints f like Number.prototype.toString.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return "null"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + string(sign) + exp
}

// writeString quotes s escaping only quotes, backslashes and control characters.
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\b':
			b.WriteString(`\b`)
		case r == '\f':
			b.WriteString(`\f`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			b.WriteString(s[:size])
		}
		s = s[size:]
	}
	b.WriteByte('"')
}
