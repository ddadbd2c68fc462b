// Package validator checks that a translation result is in the expected target language.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/subtran/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

var linguaLangs = map[detector.Lang]lingua.Language{
	detector.Chinese:  lingua.Chinese,
	detector.English:  lingua.English,
	detector.Japanese: lingua.Japanese,
	detector.Korean:   lingua.Korean,
	detector.Russian:  lingua.Russian,
	detector.Arabic:   lingua.Arabic,
	detector.Thai:     lingua.Thai,
	detector.Greek:    lingua.Greek,
	detector.Hebrew:   lingua.Hebrew,
	detector.Hindi:    lingua.Hindi,
}

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det lingua.LanguageDetector
}

// New creates a Validator restricted to the languages the script detector knows.
func New() *Validator {
	langs := make([]lingua.Language, 0, len(linguaLangs))
	for _, l := range detector.Supported() {
		if ll, ok := linguaLangs[l]; ok {
			langs = append(langs, ll)
		}
	}
	return &Validator{
		det: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
	}
}

// IsValid returns true when translatedText appears to be written in target.
//
// Short texts (fewer than minValidationLength runes), unsupported targets and
// texts whose language cannot be determined pass without error.
func (v *Validator) IsValid(translatedText string, target detector.Lang) (bool, error) {
	want, ok := linguaLangs[target]
	if !ok {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if utf8.RuneCountInString(text) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectLanguageOf(text)
	if !ok {
		return true, nil
	}

	if detected != want {
		return false, fmt.Errorf("expected %s but detected %s", target.Name(), detected.String())
	}

	return true, nil
}
