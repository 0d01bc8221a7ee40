package observability

import (
	"strings"
	"unicode"
)

const routeLabelLimit = 180

// LogLabel strips control characters from request-supplied text and caps it at limit runes
// before it reaches a log line or span attribute.
func LogLabel(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if limit > 0 {
		if runes := []rune(cleaned); len(runes) > limit {
			cleaned = string(runes[:limit])
		}
	}
	return cleaned
}

func routeLabel(route string) string {
	if route == "" {
		return "/"
	}
	return LogLabel(route, routeLabelLimit)
}
