package ui

import (
	"fmt"
	"strings"
	"time"
)

// truncate shortens a string to the given rune limit, adding an ellipsis if
// needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

// titleCase upper-cases the first letter of each word.
func titleCase(value string) string {
	fields := strings.Fields(value)
	for i, f := range fields {
		lower := strings.ToLower(f)
		fields[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(fields, " ")
}

// padRight pads a string with spaces to the given rune width.
func padRight(s string, width int) string {
	n := len([]rune(s))
	if width <= 0 || n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// padLeft right-aligns s in width runes.
func padLeft(s string, width int) string {
	n := len([]rune(s))
	if width <= 0 || n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		h := int(d.Hours())
		if rem := int(d.Minutes()) % 60; rem > 0 {
			return fmt.Sprintf("%dh %dm", h, rem)
		}
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// stars renders a 1-5 rating as filled and empty stars. Zero renders empty.
func stars(rating int) string {
	rating = min(max(rating, 0), 5)
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// formatAggregate renders a pandal's running average and count.
func formatAggregate(rating *float64, count int) string {
	if rating == nil || count == 0 {
		return "Not rated yet"
	}
	noun := "ratings"
	if count == 1 {
		noun = "rating"
	}
	return fmt.Sprintf("%.2f ★ (%d %s)", *rating, count, noun)
}

func ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
