package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepLettersOnly = regexp.MustCompile(`[^\p{L}]+`)
	reTrimUnderscores = regexp.MustCompile(`_+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseUnderscores(s string) string {
	s = reTrimUnderscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// SanitizeToken turns labels like "Video Call" or "audio-call" into
// enum-style tokens ("video_call").
func SanitizeToken(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reKeepLettersOnly.ReplaceAllString(s, "_") },
		collapseUnderscores,
	}
	return p.Apply(input)
}

// SanitizeWeekday trims a weekday name and capitalizes it the way weekdays are
// stored ("monday" -> "Monday"). Unknown names are only trimmed.
func SanitizeWeekday(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// SanitizeFreeText collapses whitespace and caps the result at maxRunes.
func SanitizeFreeText(input string, maxRunes int) string {
	s := TrimAndNormalize(input)
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
