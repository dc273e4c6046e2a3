package utils

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{
			name:     "empty string returns local",
			timezone: "",
			wantErr:  false,
		},
		{
			name:     "Local returns local",
			timezone: "Local",
			wantErr:  false,
		},
		{
			name:     "valid timezone UTC",
			timezone: "UTC",
			wantErr:  false,
		},
		{
			name:     "valid timezone Asia/Kolkata",
			timezone: "Asia/Kolkata",
			wantErr:  false,
		},
		{
			name:     "invalid timezone",
			timezone: "Invalid/Timezone",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestParseCalendarDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		loc     *time.Location
		wantDay int
		wantErr bool
	}{
		{name: "plain date", input: "2026-10-16", loc: time.UTC, wantDay: 16},
		{name: "utc timestamp keeps calendar day", input: "2026-10-16T23:30:00.000Z", loc: tokyo, wantDay: 16},
		{name: "offset timestamp keeps calendar day", input: "2026-10-17T01:00:00+05:30", loc: time.UTC, wantDay: 17},
		{name: "too short", input: "2026-10", loc: time.UTC, wantErr: true},
		{name: "not a date", input: "yesterday!", loc: time.UTC, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCalendarDate(tt.input, tt.loc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCalendarDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Day() != tt.wantDay || got.Hour() != 0 || got.Location() != tt.loc {
				t.Errorf("ParseCalendarDate() = %v, want day %d at midnight in %v", got, tt.wantDay, tt.loc)
			}
		})
	}
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2026, 10, 16, 0, 1, 0, 0, time.UTC)
	b := time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	if !IsSameDay(a, b, time.UTC) {
		t.Error("IsSameDay() = false for same date")
	}
	if IsSameDay(b, c, time.UTC) {
		t.Error("IsSameDay() = true across midnight")
	}
}
