package reminder

import (
	"fmt"
	"time"
)

// EndsAtLayout renders absolute end times, always in UTC.
const EndsAtLayout = "Jan 02, 2006, 03:04:05 PM UTC"

// FormatEndsAt formats epoch seconds with EndsAtLayout.
func FormatEndsAt(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(EndsAtLayout)
}

// SecondsToStr names the largest nonzero unit and every smaller unit down to
// seconds, e.g. 90 -> "1 Minutes, 30 seconds". Units are not singularized.
// Negative input is treated as zero.
func SecondsToStr(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	years, seconds := seconds/Year.Seconds, seconds%Year.Seconds
	months, seconds := seconds/Month.Seconds, seconds%Month.Seconds
	weeks, seconds := seconds/Week.Seconds, seconds%Week.Seconds
	days, seconds := seconds/Day.Seconds, seconds%Day.Seconds
	hours, seconds := seconds/Hour.Seconds, seconds%Hour.Seconds
	minutes, seconds := seconds/Minute.Seconds, seconds%Minute.Seconds

	switch {
	case years > 0:
		return fmt.Sprintf("%d Years, %d months, %d weeks, %d days, %d hours, %d minutes, and %d seconds",
			years, months, weeks, days, hours, minutes, seconds)
	case months > 0:
		return fmt.Sprintf("%d Months, %d weeks, %d days, %d hours, %d minutes, and %d seconds",
			months, weeks, days, hours, minutes, seconds)
	case weeks > 0:
		return fmt.Sprintf("%d Weeks, %d days, %d hours, %d minutes, and %d seconds",
			weeks, days, hours, minutes, seconds)
	case days > 0:
		return fmt.Sprintf("%d Days, %d hours, %d minutes, and %d seconds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%d Hours, %d minutes, and %d seconds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%d Minutes, %d seconds", minutes, seconds)
	}
	return fmt.Sprintf("%d Seconds", seconds)
}
