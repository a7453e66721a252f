package question

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileBank is an immutable in-memory Pool loaded from a YAML or JSON file.
type FileBank struct {
	byID         map[string]Question
	byDifficulty map[string][]string
}

var _ Pool = (*FileBank)(nil)

// LoadFile reads a question bank. The format follows the file extension:
// .json, or .yaml/.yml.
func LoadFile(path string) (*FileBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var questions []Question
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &questions)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &questions)
	default:
		return nil, fmt.Errorf("unsupported question bank format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode question bank %s: %w", path, err)
	}
	return NewFileBank(questions)
}

// NewFileBank validates questions and indexes them.
func NewFileBank(questions []Question) (*FileBank, error) {
	bank := &FileBank{
		byID:         make(map[string]Question, len(questions)),
		byDifficulty: make(map[string][]string),
	}
	for i, q := range questions {
		q.ID = strings.TrimSpace(q.ID)
		q.Difficulty = strings.ToLower(strings.TrimSpace(q.Difficulty))
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if _, dup := bank.byID[q.ID]; dup {
			return nil, fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		q.applyDefaults()
		bank.byID[q.ID] = q
		bank.byDifficulty[q.Difficulty] = append(bank.byDifficulty[q.Difficulty], q.ID)
	}
	return bank, nil
}

func validate(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("%s: title is required", q.ID)
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("%s: unknown difficulty %q", q.ID, q.Difficulty)
	}
	if len(q.TestCases) == 0 {
		return fmt.Errorf("%s: at least one test case is required", q.ID)
	}
	return nil
}

func (b *FileBank) IDsByDifficulty(_ context.Context, difficulty string) ([]string, error) {
	return append([]string(nil), b.byDifficulty[difficulty]...), nil
}

func (b *FileBank) Get(_ context.Context, id string) (*Question, error) {
	q, ok := b.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

// All returns every question ordered by id.
func (b *FileBank) All() []Question {
	out := make([]Question, 0, len(b.byID))
	for _, q := range b.byID {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
