package translate

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName resolves a language tag or name to an English display
// name suitable for a translation prompt. Unparseable input is passed
// through unchanged so free-form names like "Brazilian Portuguese"
// still work.
func LanguageName(tag string) string {
	if tag == "" {
		return "Korean"
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	name := display.English.Tags().Name(parsed)
	if name == "" {
		return tag
	}
	return name
}

// IsValidLanguageTag reports whether the tag parses as a BCP 47 tag.
func IsValidLanguageTag(tag string) bool {
	_, err := language.Parse(tag)
	return err == nil
}
