package ir

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

func TestFromGo(t *testing.T) {
	id := uuid.MustParse("0190a5c3-7e4e-7b41-9a6e-1c2d3e4f5a6b")
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 7

	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"int", 33, IRInt(33)},
		{"int32", int32(-4), IRInt(-4)},
		{"bool", false, IRBool(false)},
		{"named string", label("x"), IRString("x")},
		{"pointer", &n, IRInt(7)},
		{"float", 0.25, IRObject{TagFloat: IRString("0.25")}},
		{"time", ts, IRObject{TagTime: IRString("2024-01-02T03:04:05Z")}},
		{"uuid", id, IRObject{TagText: IRString(id.String()), "type": IRString("uuid.UUID")}},
		{"int slice", []int{10, 15}, IRArray{IRInt(10), IRInt(15)}},
		{"map", map[string]any{"city": "Lisbon"}, IRObject{"city": IRString("Lisbon")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoUnsupported(t *testing.T) {
	_, err := FromGo(struct{ A int }{A: 1})
	require.Error(t, err)

	_, err = FromGo(map[int]string{1: "a"})
	require.Error(t, err)
}
