// Package jsonutil prints RPC responses for humans.
package jsonutil

import (
	"bytes"
	"sort"

	"github.com/fatih/structs"
	"github.com/hokaccha/go-prettyjson"
)

func newFormatter(color bool) *prettyjson.Formatter {
	f := prettyjson.NewFormatter()
	f.Indent = 0
	f.Newline = ""
	f.DisabledColor = !color
	return f
}

var (
	colorFormatter = newFormatter(true)
	plainFormatter = newFormatter(false)
)

// MarshalCompactPretty prints each field of struct v on its own line as "Name: value",
// sorted by name. Values are in compact JSON form, colored if color is true.
// Fields are named and omitted according to their "structs" tags.
func MarshalCompactPretty(v any, color bool) ([]byte, error) {
	f := plainFormatter
	if color {
		f = colorFormatter
	}
	var buf bytes.Buffer
	m := structs.Map(v)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := f.Marshal(m[name])
		if err != nil {
			return nil, err
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.Write(b)
		buf.WriteRune('\n')
	}
	return buf.Bytes(), nil
}

// MarshalPretty returns indented JSON of any value.
func MarshalPretty(v any, color bool) ([]byte, error) {
	f := prettyjson.NewFormatter()
	f.DisabledColor = !color
	return f.Marshal(v)
}
