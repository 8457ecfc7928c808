package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "plain", in: "hello", expected: "'hello'"},
		{name: "empty", in: "", expected: "''"},
		{name: "single quote", in: "it's", expected: "'it''s'"},
		{name: "only quotes", in: "'''", expected: "''''''''"},
		{name: "json payload", in: `{"msg":"o'clock"}`, expected: `'{"msg":"o''clock"}'`},
		{name: "backslash untouched", in: `a\b`, expected: `'a\b'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteLiteral(tt.in))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"order_created"`, quoteIdentifier("order_created"))
	assert.Equal(t, `"odd""name"`, quoteIdentifier(`odd"name`))
}

func TestNotifyCommand(t *testing.T) {
	cmd := notifyCommand("order_created", `{"order_id":"o'1"}`)
	assert.Equal(t, `NOTIFY "order_created", '{"order_id":"o''1"}'`, cmd)
}
