package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		event string
		want  string
	}{
		{"data only", "x", "", "data: x\n\n"},
		{"with event", "x", "e", "event: e\ndata: x\n\n"},
		{"empty data", "", "", "data: \n\n"},
		{"json payload", `{"abc": 123}`, "Jackson 5", "event: Jackson 5\ndata: {\"abc\": 123}\n\n"},
		{"ping", "pong + 10/17/2026, 09:30:00", "vijai", "event: vijai\ndata: pong + 10/17/2026, 09:30:00\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := format(tt.data, tt.event)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, format(tt.data, tt.event), "format must be deterministic")
		})
	}
}
