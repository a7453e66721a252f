package question

import (
	"context"
	"errors"
)

// Difficulty constants for readability.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	DefaultTimeLimitSeconds = 2
	DefaultMemoryLimitKB    = 128000
)

// ErrNotFound is returned when a question id is unknown.
var ErrNotFound = errors.New("question not found")

// TestCase is one input/expected-output pair. Hidden cases are never sent
// to clients.
type TestCase struct {
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expectedOutput"`
	Visible        bool   `json:"visible" yaml:"visible"`
}

// Question is a coding problem in the pool.
type Question struct {
	ID               string     `json:"id" yaml:"id"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description"`
	Difficulty       string     `json:"difficulty" yaml:"difficulty"`
	InputFormat      string     `json:"inputFormat,omitempty" yaml:"inputFormat"`
	OutputFormat     string     `json:"outputFormat,omitempty" yaml:"outputFormat"`
	Constraints      string     `json:"constraints,omitempty" yaml:"constraints"`
	SampleInput      string     `json:"sampleInput,omitempty" yaml:"sampleInput"`
	SampleOutput     string     `json:"sampleOutput,omitempty" yaml:"sampleOutput"`
	TestCases        []TestCase `json:"testCases" yaml:"testCases"`
	TimeLimit        int        `json:"timeLimit" yaml:"timeLimit"`
	MemoryLimit      int        `json:"memoryLimit" yaml:"memoryLimit"`
	AllowedLanguages []string   `json:"allowedLanguages,omitempty" yaml:"allowedLanguages"`
	Tags             []string   `json:"tags,omitempty" yaml:"tags"`
}

// Public returns a copy fit for clients: hidden test cases are removed.
func (q Question) Public() Question {
	out := q
	out.TestCases = make([]TestCase, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		if tc.Visible {
			out.TestCases = append(out.TestCases, tc)
		}
	}
	out.AllowedLanguages = append([]string(nil), q.AllowedLanguages...)
	out.Tags = append([]string(nil), q.Tags...)
	return out
}

func (q *Question) applyDefaults() {
	if q.TimeLimit <= 0 {
		q.TimeLimit = DefaultTimeLimitSeconds
	}
	if q.MemoryLimit <= 0 {
		q.MemoryLimit = DefaultMemoryLimitKB
	}
}

// Pool is a source of questions grouped by difficulty.
type Pool interface {
	IDsByDifficulty(ctx context.Context, difficulty string) ([]string, error)
	Get(ctx context.Context, id string) (*Question, error)
}
