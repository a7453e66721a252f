package question

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlBank = `
- id: two-sum
  title: Two Sum
  description: Print the sum of two integers.
  difficulty: Easy
  sampleInput: "1 2"
  sampleOutput: "3"
  testCases:
    - input: "1 2"
      expectedOutput: "3"
      visible: true
    - input: "40 2"
      expectedOutput: "42"
  tags: [math]
- id: reverse
  title: Reverse
  description: Reverse a string.
  difficulty: medium
  timeLimit: 5
  testCases:
    - input: "abc"
      expectedOutput: "cba"
`

const jsonBank = `[
  {"id": "fizz", "title": "Fizz", "description": "fizzbuzz", "difficulty": "easy",
   "testCases": [{"input": "3", "expectedOutput": "Fizz", "visible": true}]}
]`

func writeBank(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	bank, err := LoadFile(writeBank(t, "questions.yaml", yamlBank))
	require.NoError(t, err)

	ids, err := bank.IDsByDifficulty(context.Background(), DifficultyEasy)
	require.NoError(t, err)
	assert.Equal(t, []string{"two-sum"}, ids)

	q, err := bank.Get(context.Background(), "two-sum")
	require.NoError(t, err)
	assert.Equal(t, "easy", q.Difficulty)
	assert.Equal(t, DefaultTimeLimitSeconds, q.TimeLimit)
	assert.Equal(t, DefaultMemoryLimitKB, q.MemoryLimit)
	assert.Len(t, q.TestCases, 2)

	reverse, err := bank.Get(context.Background(), "reverse")
	require.NoError(t, err)
	assert.Equal(t, 5, reverse.TimeLimit)

	assert.Len(t, bank.All(), 2)
}

func TestLoadFile_JSON(t *testing.T) {
	bank, err := LoadFile(writeBank(t, "QuestionData.json", jsonBank))
	require.NoError(t, err)

	q, err := bank.Get(context.Background(), "fizz")
	require.NoError(t, err)
	assert.Equal(t, "Fizz", q.Title)
}

func TestLoadFile_Rejects(t *testing.T) {
	_, err := LoadFile(writeBank(t, "questions.txt", yamlBank))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = NewFileBank([]Question{
		{ID: "a", Title: "A", Difficulty: "easy", TestCases: []TestCase{{Input: "1"}}},
		{ID: "a", Title: "A again", Difficulty: "easy", TestCases: []TestCase{{Input: "1"}}},
	})
	assert.ErrorContains(t, err, "duplicate id")

	_, err = NewFileBank([]Question{{ID: "b", Title: "B", Difficulty: "easy"}})
	assert.ErrorContains(t, err, "test case")

	_, err = NewFileBank([]Question{{ID: "c", Title: "C", Difficulty: "extreme", TestCases: []TestCase{{}}}})
	assert.ErrorContains(t, err, "difficulty")
}

func TestFileBank_GetUnknown(t *testing.T) {
	bank, err := NewFileBank(nil)
	require.NoError(t, err)

	_, err = bank.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestQuestion_PublicHidesHiddenCases(t *testing.T) {
	q := Question{
		ID: "x",
		TestCases: []TestCase{
			{Input: "1", ExpectedOutput: "1", Visible: true},
			{Input: "2", ExpectedOutput: "4"},
		},
	}
	pub := q.Public()
	assert.Len(t, pub.TestCases, 1)
	assert.Len(t, q.TestCases, 2)
}
