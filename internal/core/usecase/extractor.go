package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

// Plate shapes in priority order: current (AB12 CDE), prefix (A123 BCD),
// suffix (ABC 123D), dateless (AB 1234).
var platePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z]{2}[0-9]{2} ?[A-Z]{3}`),
	regexp.MustCompile(`[A-Z][0-9]{1,3} ?[A-Z]{3}`),
	regexp.MustCompile(`[A-Z]{3} ?[0-9]{1,3}[A-Z]`),
	regexp.MustCompile(`[A-Z]{1,2} ?[0-9]{1,4}`),
}

var plateShapes = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{3}$`),
	regexp.MustCompile(`^[A-Z][0-9]{1,3}[A-Z]{3}$`),
	regexp.MustCompile(`^[A-Z]{3}[0-9]{1,3}[A-Z]$`),
	regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,4}$`),
}

const nationalTag = "GB"

// ExtractPlate picks the most plausible plate out of noisy recognized text.
// The first pattern with an acceptable match wins even if a later pattern
// would match a longer substring. confidence is passed through unchanged.
func ExtractPlate(text string, confidence float64) domain.RecognitionResult {
	cleaned := stripNationalTag(cleanRecognizedText(text))

	for _, pattern := range platePatterns {
		matches := pattern.FindAllString(cleaned, -1)
		if len(matches) == 0 {
			continue
		}
		best := longestMatch(matches)
		plate := domain.CanonicalPlate(best)
		if len(plate) < domain.MinPlateLength || len(plate) > domain.MaxPlateLength {
			continue
		}
		return domain.RecognitionResult{Plate: plate, Confidence: confidence}
	}

	return domain.RecognitionResult{Confidence: confidence}
}

// ValidatePlate reports whether raw, once canonical, is exactly one of the
// known UK plate shapes.
func ValidatePlate(raw string) bool {
	plate := string(domain.CanonicalPlate(raw))
	for _, shape := range plateShapes {
		if shape.MatchString(plate) {
			return true
		}
	}
	return false
}

// cleanRecognizedText keeps only upper-case letters, digits and literal
// spaces. Line breaks and tabs are dropped, not turned into spaces.
func cleanRecognizedText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToUpper(text) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripNationalTag drops a GB sticker read as part of the plate. A leading tag
// is only removed when a letter or space follows it so plates such as
// "GB51 XYZ" survive.
func stripNationalTag(text string) string {
	text = strings.Trim(text, " ")
	if strings.HasPrefix(text, nationalTag) && len(text) > len(nationalTag) {
		next := text[len(nationalTag)]
		if next == ' ' || (next >= 'A' && next <= 'Z') {
			text = strings.TrimSpace(text[len(nationalTag):])
		}
	}
	if strings.HasSuffix(text, " "+nationalTag) {
		text = strings.TrimSpace(strings.TrimSuffix(text, nationalTag))
	}
	return text
}

func longestMatch(matches []string) string {
	best := matches[0]
	for _, m := range matches[1:] {
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}
