package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputsMatch(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		want     bool
	}{
		{name: "identical", actual: "42", expected: "42", want: true},
		{name: "trailing newline", actual: "42\n", expected: "42", want: true},
		{name: "surrounding whitespace", actual: "  hello world \n", expected: "hello world", want: true},
		{name: "json array spacing", actual: "[1, 2,3]", expected: "[1,2,3]", want: true},
		{name: "json object key order", actual: `{"b":2,"a":1}`, expected: `{"a":1,"b":2}`, want: true},
		{name: "json number forms", actual: "5.0", expected: "5", want: true},
		{name: "json array order matters", actual: "[2,1]", expected: "[1,2]", want: false},
		{name: "literal mismatch", actual: "Hello", expected: "hello", want: false},
		{name: "inner whitespace literal", actual: "a  b", expected: "a b", want: false},
		{name: "one side json", actual: "[1,2", expected: "[1,2]", want: false},
		{name: "both empty", actual: "\n", expected: "", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputsMatch(tt.actual, tt.expected))
		})
	}
}

func TestLanguageID(t *testing.T) {
	id, ok := LanguageID(" Python ")
	assert.True(t, ok)
	assert.Equal(t, 71, id)

	_, ok = LanguageID("cobol")
	assert.False(t, ok)
	assert.True(t, SupportsLanguage("go"))
	assert.Contains(t, Languages(), "javascript")
}
