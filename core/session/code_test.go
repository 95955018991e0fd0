package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core/clock"
)

func TestParseCode(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	jan6 := time.Date(2025, time.January, 6, 0, 0, 0, 0, loc)

	tests := []struct {
		name    string
		code    string
		want    Code
		wantErr bool
	}{
		{name: "scheduled", code: "A-101-20250106-0800", want: Code{Room: "A-101", Date: jan6, Start: 480}},
		{name: "manual", code: "B-9-20250106-manual", want: Code{Room: "B-9", Date: jan6, Manual: true}},
		{name: "room with many hyphens", code: "LAB-2-EAST-20250106-1430", want: Code{Room: "LAB-2-EAST", Date: jan6, Start: 870}},
		{name: "room looking like a date", code: "20250101-20250106-manual", want: Code{Room: "20250101", Date: jan6, Manual: true}},
		{name: "surrounding spaces", code: "  A-101-20250106-0800 ", want: Code{Room: "A-101", Date: jan6, Start: 480}},
		{name: "empty", code: "", wantErr: true},
		{name: "no room", code: "-20250106-0800", wantErr: true},
		{name: "blank room", code: " -20250106-0800", wantErr: true},
		{name: "short date", code: "A-101-2025016-0800", wantErr: true},
		{name: "impossible date", code: "A-101-20251332-0800", wantErr: true},
		{name: "impossible time", code: "A-101-20250106-2460", wantErr: true},
		{name: "unknown suffix", code: "A-101-20250106-later", wantErr: true},
		{name: "uppercase manual", code: "A-101-20250106-MANUAL", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCode(tt.code, loc)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidCode, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Room, got.Room)
			assert.True(t, tt.want.Date.Equal(got.Date), "date = %v, want %v", got.Date, tt.want.Date)
			assert.Equal(t, tt.want.Start, got.Start)
			assert.Equal(t, tt.want.Manual, got.Manual)
		})
	}
}

func TestCode_String(t *testing.T) {
	loc := time.UTC
	date := time.Date(2025, time.January, 1, 17, 45, 0, 0, loc)

	assert.Equal(t, "X-1-20250101-manual", NewManualCode("X-1", date).String())
	assert.Equal(t, "A-101-20250101-0805", NewCode(" A-101 ", date, clock.MustParseTimeOfDay("08:05")).String())

	// round trip
	for _, s := range []string{"X-1-20250101-manual", "A-101-20250101-0000", "R-20250101-2359"} {
		c, err := ParseCode(s, loc)
		require.NoError(t, err)
		assert.Equal(t, s, c.String())
	}
}

func TestCode_PlannedStart(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	c, err := ParseCode("A-101-20250106-0800", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, time.January, 6, 8, 0, 0, 0, loc).Equal(c.PlannedStart()))
}
