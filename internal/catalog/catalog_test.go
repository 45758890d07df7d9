package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	c, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if len(c.Cases()) != 5 {
		t.Fatalf("expected 5 cases, got %d", len(c.Cases()))
	}
	if c.QuestionCount() != 10 {
		t.Errorf("expected 10 questions, got %d", c.QuestionCount())
	}
	if c.MaxPossible() != 100 {
		t.Errorf("expected max possible 100, got %f", c.MaxPossible())
	}

	cs, ok := c.Case(2)
	if !ok {
		t.Fatal("case 2 not found")
	}
	if cs.Title == "" {
		t.Error("case 2 has empty title")
	}
	if len(cs.Questions) != 2 {
		t.Errorf("expected 2 questions in case 2, got %d", len(cs.Questions))
	}
	// The smart-contract validity question is the only true answer in case 2.
	if cs.Questions[0].Correct || !cs.Questions[1].Correct {
		t.Error("unexpected expected answers in case 2")
	}

	if _, ok := c.Case(99); ok {
		t.Error("expected case 99 to be missing")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	t.Run("valid", func(t *testing.T) {
		path := write("ok.json", `[
			{"id": 7, "title": "T", "description": "D", "questions": [
				{"text": "Q1", "correct": true, "keywords": ["k"]}
			]}
		]`)
		c, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if c.QuestionCount() != 1 {
			t.Errorf("expected 1 question, got %d", c.QuestionCount())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	tests := []struct {
		name    string
		content string
	}{
		{"invalid JSON", `[{`},
		{"empty list", `[]`},
		{"missing id", `[{"title":"T","questions":[{"text":"Q","correct":true}]}]`},
		{"duplicate id", `[
			{"id":1,"title":"A","questions":[{"text":"Q","correct":true}]},
			{"id":1,"title":"B","questions":[{"text":"Q","correct":true}]}
		]`},
		{"no questions", `[{"id":1,"title":"T","questions":[]}]`},
		{"empty question text", `[{"id":1,"title":"T","questions":[{"text":"","correct":true}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write("bad.json", tt.content)
			if _, err := LoadFile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
