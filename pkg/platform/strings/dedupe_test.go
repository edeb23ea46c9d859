package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type principal string

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "empty", input: []string{}, expected: []string{}},
		{name: "trims", input: []string{" a:9092 ", "b:9092"}, expected: []string{"a:9092", "b:9092"}},
		{name: "drops blanks", input: []string{"", "  ", "a"}, expected: []string{"a"}},
		{name: "first occurrence wins", input: []string{"b", "a", " b", "a"}, expected: []string{"b", "a"}},
		{name: "case sensitive", input: []string{"A", "a"}, expected: []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestRepeated(t *testing.T) {
	assert.Nil(t, Repeated([]principal{"alice", "bob"}))
	assert.Equal(t,
		[]principal{"bob", "alice"},
		Repeated([]principal{"alice", "bob", "bob", "alice", "bob"}),
	)
	assert.Equal(t, []principal{""}, Repeated([]principal{"", ""}))
}
