// Package validator checks that translated text is actually written in the
// target language, catching the failure mode where an LLM answers in the
// source language or echoes the input untranslated.
package validator

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// minValidationLength is the minimum rune count required to attempt
// detection. Shorter texts produce unreliable results and pass unvalidated.
const minValidationLength = 20

// Validator detects the language of translated fragments. The underlying
// detector is expensive to build; construct once and reuse.
type Validator struct {
	det lingua.LanguageDetector
}

// New creates a Validator. With no arguments the detector considers all
// languages lingua knows; passing a restricted set speeds up detection.
func New(languages ...lingua.Language) *Validator {
	builder := lingua.NewLanguageDetectorBuilder()
	if len(languages) > 0 {
		return &Validator{det: builder.FromLanguages(languages...).Build()}
	}
	return &Validator{det: builder.FromAllLanguages().Build()}
}

// IsValid reports whether text appears to be written in targetLang (an ISO
// 639-1 code). Empty text fails. Short or ambiguous texts pass without
// validation. A detected mismatch returns false with an error naming both
// codes.
func (v *Validator) IsValid(text, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	lang, ok := v.det.DetectLanguageOf(text)
	if !ok {
		return true, nil
	}
	detected := lang.IsoCode639_1().String()

	if !strings.EqualFold(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}
	return true, nil
}
