package generate

import (
	"regexp"
	"strconv"

	"github.com/fitcoach/kotae/internal/models"
)

var markerPattern = regexp.MustCompile(`\[(\d{1,3})\]`)

// ExtractMarkers returns the citation markers referenced in generated text,
// deduplicated, in first-use order.
func ExtractMarkers(text string) []int {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool)
	var markers []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || seen[n] {
			continue
		}
		seen[n] = true
		markers = append(markers, n)
	}
	return markers
}

// ResolveCitations maps the markers used in text to citations from the
// assembled context. Markers that do not resolve are returned separately so
// the caller can log them; they are dropped, not fatal.
func ResolveCitations(text string, assembled *models.AssembledContext) (resolved []models.Citation, dropped []int) {
	for _, marker := range ExtractMarkers(text) {
		if cit, ok := assembled.CitationFor(marker); ok {
			resolved = append(resolved, cit)
		} else {
			dropped = append(dropped, marker)
		}
	}
	return resolved, dropped
}
