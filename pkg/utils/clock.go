package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])?$`)

// NormalizeClockTime converts a presentation time ("1:15 PM", "12:00 AM",
// "09:05") into canonical 24-hour "HH:MM". Malformed input is an error.
func NormalizeClockTime(s string) (string, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("invalid time %q", s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return "", fmt.Errorf("invalid time %q: minute out of range", s)
	}

	switch strings.ToUpper(m[3]) {
	case "":
		if hour > 23 {
			return "", fmt.Errorf("invalid time %q: hour out of range", s)
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("invalid time %q: hour out of range", s)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("invalid time %q: hour out of range", s)
		}
		if hour != 12 {
			hour += 12
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
