package reminder

import "testing"

func TestSecondsToStr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 Seconds"},
		{-5, "0 Seconds"},
		{45, "45 Seconds"},
		{90, "1 Minutes, 30 seconds"},
		{3661, "1 Hours, 1 minutes, and 1 seconds"},
		{86400 + 5, "1 Days, 0 hours, 0 minutes, and 5 seconds"},
		{604800 * 2, "2 Weeks, 0 days, 0 hours, 0 minutes, and 0 seconds"},
		{2592000 + 60, "1 Months, 0 weeks, 0 days, 0 hours, 1 minutes, and 0 seconds"},
		{31536000 + 1, "1 Years, 0 months, 0 weeks, 0 days, 0 hours, 0 minutes, and 1 seconds"},
	}
	for _, tc := range cases {
		if got := SecondsToStr(tc.in); got != tc.want {
			t.Fatalf("SecondsToStr(%d)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatEndsAt(t *testing.T) {
	t.Parallel()

	if got := FormatEndsAt(1700000000); got != "Nov 14, 2023, 10:13:20 PM UTC" {
		t.Fatalf("FormatEndsAt=%q", got)
	}
}
