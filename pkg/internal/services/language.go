package services

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	languageDetector     lingua.LanguageDetector
	languageDetectorOnce sync.Once
)

// DetectLanguage guesses the language of free text answers so facilitators
// can filter responses later. Returns the ISO 639-1 code, or "unknown" when
// the detector is not confident.
func DetectLanguage(parts ...string) string {
	content := strings.TrimSpace(strings.Join(parts, "\n"))
	if len(content) == 0 {
		return "unknown"
	}

	languageDetectorOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromAllSpokenLanguages().
			Build()
	})

	if language, ok := languageDetector.DetectLanguageOf(content); ok {
		return strings.ToLower(language.IsoCode639_1().String())
	}

	return "unknown"
}
