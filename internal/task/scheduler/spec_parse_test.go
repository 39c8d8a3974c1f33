package scheduler

import (
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		kind    SpecKind
		cron    string
		every   time.Duration
		wantErr bool
	}{
		{in: "0 */6 * * *", kind: SpecCron, cron: "0 */6 * * *"},
		{in: "@hourly", kind: SpecCron, cron: "@hourly"},
		{in: "cron: 5 4 * * *", kind: SpecCron, cron: "5 4 * * *"},
		{in: "6h", kind: SpecInterval, every: 6 * time.Hour},
		{in: "01:30", kind: SpecInterval, every: 90 * time.Minute},
		{in: "every: 00:05", kind: SpecInterval, every: 5 * time.Minute},
		{in: "00:00", wantErr: true},
		{in: "01:75", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSchedule(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind != tc.kind || got.Cron != tc.cron || got.Every != tc.every {
				t.Fatalf("got %+v", got)
			}
		})
	}
}
