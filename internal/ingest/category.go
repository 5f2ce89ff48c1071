package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fitcoach/kotae/internal/models"
)

// categoryKeywords maps filename keywords to a category. Checked in order;
// the first match wins, so nutrition terms shadow the broader science list.
var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryNutrition, []string{
		"ad libitum", "adherence", "carbohydrates", "dietary fat", "energy",
		"fasting", "ketogenic", "macronutrition", "micronutrition",
		"nutrition", "periodization", "protein", "supplements",
		"health science and food",
	}},
	{models.CategoryRecovery, []string{
		"sleep", "recovery", "deload", "fatigue", "injury management",
		"stretching", "warming up",
	}},
	{models.CategoryTraining, []string{
		"advanced strength", "age specific", "cardio", "exercise library",
		"exercise performance", "exercise selection", "how to structure",
		"powerlifting", "program customization", "training",
		"posture", "volume",
	}},
	{models.CategoryExerciseScience, []string{
		"biochemistry", "muscle functional anatomy", "understanding muscle",
		"physiology", "hypertrophy mechanisms",
	}},
}

// yearMarker matches course edition suffixes like "PTC 2022"; bare years in a
// source name are meaningful and kept.
var yearMarker = regexp.MustCompile(`\bptc\s*20\d{2}\b`)
var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// CategoryFromFilename infers a chunk category from a corpus filename.
// Filenames follow the course convention ("Protein PTC 2022.pdf"); anything
// unmatched lands in CategoryOther.
func CategoryFromFilename(filename string) models.Category {
	name := strings.ToLower(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = yearMarker.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(name, kw) {
				return group.category
			}
		}
	}
	return models.CategoryOther
}

// SourceIDFromFilename derives the stable source identifier from a corpus
// filename: extension and year markers stripped, lowercased, slugged.
func SourceIDFromFilename(filename string) string {
	name := strings.ToLower(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = yearMarker.ReplaceAllString(name, "")
	name = nonSlug.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
