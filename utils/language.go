package utils

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

type LanguageDetector interface {
	DetectLanguage(text string) string
}

// LinguaDetector detects the dominant language of a transcript. The underlying detector is
// built on first use because loading every language model is slow.
type LinguaDetector struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when it cannot be determined.
func (d *LinguaDetector) DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build()
	})
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
