package method

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"camel case", "findByNameAndAgeGreaterThanEqual", []string{"find", "By", "Name", "And", "Age", "Greater", "Than", "Equal"}},
		{"acronym", "findByURLPath", []string{"find", "By", "URL", "Path"}},
		{"trailing acronym", "findByID", []string{"find", "By", "ID"}},
		{"underscore boundary", "findBySalary_Currency", []string{"find", "By", "Salary", "_", "Currency"}},
		{"digits stay attached", "findByAddress2City", []string{"find", "By", "Address2", "City"}},
		{"bare prefix", "count", []string{"count"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}
