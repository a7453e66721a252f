package judge

import (
	"sort"
	"strings"
)

// languageIDs maps language names to Judge0 language ids.
var languageIDs = map[string]int{
	"c":          50,
	"cpp":        54,
	"go":         60,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

// LanguageID resolves a language name.
func LanguageID(name string) (int, bool) {
	id, ok := languageIDs[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// SupportsLanguage reports whether name can be judged.
func SupportsLanguage(name string) bool {
	_, ok := LanguageID(name)
	return ok
}

// Languages lists supported language names in order.
func Languages() []string {
	out := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
