package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/bua/internal/model"
)

func TestResultSerialization(t *testing.T) {
	tests := map[string]struct {
		value model.ResultValue
		exp   string
	}{
		"Nil value serializes to empty": {
			value: nil,
			exp:   "",
		},

		"Text passes through": {
			value: model.TextResult("open example.com"),
			exp:   "open example.com",
		},

		"Structured values are JSON encoded": {
			value: model.StructuredResult{Value: map[string]interface{}{"ok": true}},
			exp:   `{"ok":true}`,
		},

		"Lists are newline joined": {
			value: model.ListResult{
				model.TextResult("first"),
				model.TextResult("second"),
			},
			exp: "first\nsecond",
		},

		"Lists tolerate a mix of text and structured items": {
			value: model.ListResult{
				model.StructuredResult{Value: map[string]interface{}{"action": "click"}},
				model.TextResult("plain note"),
				nil,
			},
			exp: "{\"action\":\"click\"}\nplain note\n",
		},

		"Empty list serializes to empty": {
			value: model.ListResult{},
			exp:   "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.exp, model.SerializeResult(tt.value))
		})
	}
}
