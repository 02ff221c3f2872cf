package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type scalarKind byte

const (
	scalarString scalarKind = 's'
	scalarNumber scalarKind = 'n'
	scalarBool   scalarKind = 'b'
)

type scalar struct {
	kind scalarKind
	text string
}

// AttributeValue is a variant attribute value: a string, number or bool scalar, or
// a list of such scalars. Numbers are held in canonical decimal form so 1 and 1.0
// are the same value.
type AttributeValue struct {
	list  bool
	items []scalar
}

// Str builds a string attribute value.
func Str(s string) AttributeValue {
	return AttributeValue{items: []scalar{{kind: scalarString, text: s}}}
}

// Num builds a numeric attribute value.
func Num(n float64) AttributeValue {
	return AttributeValue{items: []scalar{{kind: scalarNumber, text: decimal.NewFromFloat(n).String()}}}
}

// Bool builds a boolean attribute value.
func Bool(b bool) AttributeValue {
	return AttributeValue{items: []scalar{{kind: scalarBool, text: strconv.FormatBool(b)}}}
}

// List builds a list value. List arguments contribute their elements, so lists never nest.
func List(values ...AttributeValue) AttributeValue {
	v := AttributeValue{list: true, items: []scalar{}}
	for _, el := range values {
		v.items = append(v.items, el.items...)
	}
	return v
}

// IsList reports whether v holds a list.
func (v AttributeValue) IsList() bool {
	return v.list
}

func (v AttributeValue) encode() string {
	enc := func(s scalar) string { return string(s.kind) + strconv.Quote(s.text) }
	if !v.list {
		if len(v.items) == 0 {
			return ""
		}
		return enc(v.items[0])
	}
	parts := make([]string, len(v.items))
	for i, s := range v.items {
		parts[i] = enc(s)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (v AttributeValue) String() string {
	return v.encode()
}

// Equal reports whether two values are identical, including list order.
func (v AttributeValue) Equal(other AttributeValue) bool {
	return v.encode() == other.encode()
}

func (s scalar) marshal(buf *bytes.Buffer) error {
	switch s.kind {
	case scalarNumber, scalarBool:
		buf.WriteString(s.text)
	default:
		b, err := json.Marshal(s.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// MarshalJSON renders v as a plain JSON scalar or array.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if !v.list {
		if len(v.items) == 0 {
			return []byte("null"), nil
		}
		if err := v.items[0].marshal(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	buf.WriteByte('[')
	for i, s := range v.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := s.marshal(&buf); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a string, number, bool or an array of those.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	if arr, ok := raw.([]any); ok {
		out := AttributeValue{list: true, items: make([]scalar, 0, len(arr))}
		for _, el := range arr {
			s, err := toScalar(el)
			if err != nil {
				return err
			}
			out.items = append(out.items, s)
		}
		*v = out
		return nil
	}

	s, err := toScalar(raw)
	if err != nil {
		return err
	}
	*v = AttributeValue{items: []scalar{s}}
	return nil
}

func toScalar(raw any) (scalar, error) {
	switch t := raw.(type) {
	case string:
		return scalar{kind: scalarString, text: t}, nil
	case bool:
		return scalar{kind: scalarBool, text: strconv.FormatBool(t)}, nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return scalar{}, fmt.Errorf("invalid number attribute %q: %w", t.String(), err)
		}
		return scalar{kind: scalarNumber, text: d.String()}, nil
	default:
		return scalar{}, fmt.Errorf("attribute values must be strings, numbers, booleans or lists of those, got %T", raw)
	}
}

// Attributes disambiguates product variants such as size or colour.
type Attributes map[string]AttributeValue

// Key returns a canonical encoding of a. Attribute order does not matter; two
// attribute sets describe the same variant iff their keys are equal.
func (a Attributes) Key() string {
	if len(a) == 0 {
		return ""
	}
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.Quote(name))
		sb.WriteByte('=')
		sb.WriteString(a[name].encode())
	}
	return sb.String()
}

// Equal reports full map equality.
func (a Attributes) Equal(other Attributes) bool {
	return a.Key() == other.Key()
}

// Validate rejects blank attribute names and empty scalar values.
func (a Attributes) Validate() error {
	for name, v := range a {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("attribute name must not be blank")
		}
		if !v.list && len(v.items) == 0 {
			return fmt.Errorf("attribute %q has no value", name)
		}
	}
	return nil
}
