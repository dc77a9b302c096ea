package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultValue is one value produced by an engine run. Engine output is
// loosely shaped (sometimes structured, sometimes plain text, sometimes a
// list of either), so it is modeled as a closed set of variants with one
// serialization rule each instead of runtime type inspection at the caller.
type ResultValue interface {
	// Serialize renders the value as text. It never fails: values that
	// cannot be JSON-encoded degrade to their Go string representation.
	Serialize() string
}

// TextResult is a plain text value, serialized as-is.
type TextResult string

func (t TextResult) Serialize() string { return string(t) }

// StructuredResult is an object-shaped value, serialized as JSON.
type StructuredResult struct {
	Value interface{}
}

func (s StructuredResult) Serialize() string {
	data, err := json.Marshal(s.Value)
	if err != nil {
		return fmt.Sprintf("%v", s.Value)
	}
	return string(data)
}

// ListResult is a sequence of values, serialized per-item and joined with
// newlines.
type ListResult []ResultValue

func (l ListResult) Serialize() string {
	items := make([]string, 0, len(l))
	for _, item := range l {
		items = append(items, SerializeResult(item))
	}
	return strings.Join(items, "\n")
}

// SerializeResult serializes a possibly-nil result value.
func SerializeResult(v ResultValue) string {
	if v == nil {
		return ""
	}
	return v.Serialize()
}
