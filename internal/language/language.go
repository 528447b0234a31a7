// Package language resolves BCP-47 tags into the display names embedded in
// translation prompts.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Parse validates a BCP-47 tag such as "ja" or "zh-Hans".
func Parse(tag string) (language.Tag, error) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return language.Und, fmt.Errorf("language tag is empty")
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return language.Und, fmt.Errorf("parse language tag %q: %w", trimmed, err)
	}
	return parsed, nil
}

// DisplayName returns the English display name for a BCP-47 tag, e.g.
// "Japanese" for "ja" and "Simplified Chinese" for "zh-Hans". Unparseable
// tags fall back to the raw input so prompts stay usable.
func DisplayName(tag string) string {
	parsed, err := Parse(tag)
	if err != nil {
		return strings.TrimSpace(tag)
	}
	name := display.English.Tags().Name(parsed)
	if name == "" {
		return strings.TrimSpace(tag)
	}
	return name
}
