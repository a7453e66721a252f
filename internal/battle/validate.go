package battle

import (
	"fmt"
	"strings"
)

// CreateRequest is the client-supplied battle configuration.
type CreateRequest struct {
	BattleName           string   `json:"battleName"`
	Description          string   `json:"description"`
	QuestionsNumber      int      `json:"questionsNumber"`
	IsPrivate            bool     `json:"isPrivate"`
	IsSameLanguage       bool     `json:"isSameLanguage"`
	AllowedLanguages     []string `json:"allowedLanguages"`
	Difficulty           string   `json:"difficulty"`
	Mode                 string   `json:"mode"`
	TimeLimitPerQuestion int      `json:"timeLimitPerQuestion,omitempty"`
}

// Validate normalizes the request into a Config. known, when non-nil,
// restricts the allowed language names.
func (r CreateRequest) Validate(known func(string) bool) (Config, error) {
	name := strings.TrimSpace(r.BattleName)
	if len(name) < minTextLength {
		return Config{}, validationError("battleName", fmt.Sprintf("must be at least %d characters", minTextLength))
	}
	desc := strings.TrimSpace(r.Description)
	if len(desc) < minTextLength {
		return Config{}, validationError("description", fmt.Sprintf("must be at least %d characters", minTextLength))
	}
	if r.QuestionsNumber < MinQuestions || r.QuestionsNumber > MaxQuestions {
		return Config{}, validationError("questionsNumber", fmt.Sprintf("must be between %d and %d", MinQuestions, MaxQuestions))
	}
	difficulty := Difficulty(strings.ToLower(strings.TrimSpace(r.Difficulty)))
	if !difficulty.valid() {
		return Config{}, validationError("difficulty", "must be one of easy, medium, hard")
	}
	mode, ok := ParseMode(strings.ToLower(strings.TrimSpace(r.Mode)))
	if !ok {
		return Config{}, validationError("mode", "must be one of time, quality")
	}
	timeLimit := r.TimeLimitPerQuestion
	switch {
	case timeLimit == 0:
		timeLimit = DefaultTimeLimitPerQuestion
	case timeLimit < 0:
		return Config{}, validationError("timeLimitPerQuestion", "must be positive")
	}

	languages := []string{}
	if r.IsSameLanguage {
		seen := make(map[string]struct{}, len(r.AllowedLanguages))
		for _, raw := range r.AllowedLanguages {
			lang := strings.ToLower(strings.TrimSpace(raw))
			if lang == "" {
				continue
			}
			if known != nil && !known(lang) {
				return Config{}, validationError("allowedLanguages", fmt.Sprintf("unsupported language %q", raw))
			}
			if _, dup := seen[lang]; dup {
				continue
			}
			seen[lang] = struct{}{}
			languages = append(languages, lang)
		}
		if len(languages) == 0 {
			return Config{}, validationError("allowedLanguages", "at least one language is required when isSameLanguage is set")
		}
	}

	return Config{
		Name:                 name,
		Description:          desc,
		QuestionsNumber:      r.QuestionsNumber,
		Difficulty:           difficulty,
		Mode:                 mode,
		IsPrivate:            r.IsPrivate,
		IsSameLanguage:       r.IsSameLanguage,
		AllowedLanguages:     languages,
		TimeLimitPerQuestion: timeLimit,
	}, nil
}
