// Package ocr recognizes text in rendered page images.
package ocr

import (
	"context"
	"image"

	"golang.org/x/text/language"
)

// DefaultLanguages is used when a caller does not name any languages.
var DefaultLanguages = []string{"en-US", "zh-Hant", "zh-Hans"}

// Recognizer turns one page image into plain text. Failures wrap
// models.ErrRecognitionUnavailable.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, languages []string) (string, error)
}

// LanguagesOrDefault returns languages, or DefaultLanguages when it is empty.
func LanguagesOrDefault(languages []string) []string {
	if len(languages) == 0 {
		return append([]string(nil), DefaultLanguages...)
	}
	return languages
}

// DetectedCodes reduces BCP-47 tags to the codes stored on a record: the base
// language, plus the script when the tag names one explicitly ("en-US" gives
// "en", "zh-Hant" stays "zh-Hant"). Unparsable tags are dropped.
func DetectedCodes(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range tags {
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		code := base.String()
		if script, conf := tag.Script(); conf == language.Exact {
			code += "-" + script.String()
		}
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

// TesseractCodes maps BCP-47 tags onto Tesseract traineddata names.
func TesseractCodes(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range tags {
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		var code string
		switch base.String() {
		case "zh":
			code = "chi_sim"
			if script, _ := tag.Script(); script.String() == "Hant" {
				code = "chi_tra"
			}
		default:
			code = base.ISO3()
		}
		if code != "" && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}
