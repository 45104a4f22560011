package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSteelNum(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "float artifact", input: "123.0", expected: "123"},
		{name: "surrounding whitespace", input: "  45 ", expected: "45"},
		{name: "artifact then whitespace", input: " 77.0 ", expected: "77"},
		{name: "repeated artifact", input: "5.0.0", expected: "5"},
		{name: "nil", input: nil, expected: UnknownSteel},
		{name: "empty", input: "", expected: UnknownSteel},
		{name: "nan string", input: "nan", expected: UnknownSteel},
		{name: "NaN float", input: math.NaN(), expected: UnknownSteel},
		{name: "None", input: "None", expected: UnknownSteel},
		{name: "numeric float", input: 101.0, expected: "101"},
		{name: "integer", input: 42, expected: "42"},
		{name: "non numeric id", input: "СТ-2", expected: "СТ-2"},
		{name: "already normalized", input: UnknownSteel, expected: UnknownSteel},
		{name: "decimal kept", input: "12.5", expected: "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSteelNum(tt.input))
		})
	}
}
