package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Canonical parses a BCP 47 code (underscores are accepted as separators)
// and returns its canonical form, e.g. "en_us" becomes "en-US".
func Canonical(code string) (string, error) {
	tag, err := parse(code)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// NormalizeList canonicalizes and deduplicates codes, preserving order.
// Unparseable entries are skipped.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		code, err := Canonical(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// Base returns the primary language subtag ("en" for "en-GB"), or "" when
// the code cannot be parsed.
func Base(code string) string {
	tag, err := parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// DisplayName returns the English name for a code ("British English" for
// "en-GB"). Unknown input is returned uppercased; empty input is "Unknown".
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	tag, err := parse(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// Pick walks preferences in order and returns the index of the first
// available code that is the same language tag. Only exact tag matches
// count: "en" does not satisfy a preference for "en-US" and vice versa.
func Pick(preferences, available []string) (int, bool) {
	codes := make([]string, len(available))
	for i, raw := range available {
		codes[i], _ = Canonical(raw)
	}
	for _, pref := range preferences {
		want, err := Canonical(pref)
		if err != nil {
			continue
		}
		for i, code := range codes {
			if code != "" && code == want {
				return i, true
			}
		}
	}
	return -1, false
}

func parse(code string) (language.Tag, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return language.Und, fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("parse language %q: %w", code, err)
	}
	return tag, nil
}
