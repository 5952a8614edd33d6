package player

import "fmt"

// FormatClock renders whole seconds as mm:ss, or h:mm:ss past an hour.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ProgressLabel renders "elapsed / total". An unknown total renders as --:--.
func ProgressLabel(position, duration int) string {
	if duration <= 0 {
		return FormatClock(position) + " / --:--"
	}
	return FormatClock(position) + " / " + FormatClock(duration)
}

// Percent returns position as a share of duration in [0, 100], or 0 when
// the duration is unknown.
func Percent(position, duration int) float64 {
	if duration <= 0 || position <= 0 {
		return 0
	}
	p := float64(position) / float64(duration) * 100
	if p > 100 {
		return 100
	}
	return p
}
