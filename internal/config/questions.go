package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/tinkerloft/formpilot/internal/model"
)

// questionSheet is the YAML sheet form: either a bare list or a mapping
// with a questions key.
type questionSheet struct {
	Questions []model.QuestionInput `yaml:"questions"`
}

// questionFrontmatter is the frontmatter of a Markdown question file. The
// body is the question text.
type questionFrontmatter struct {
	ID      string   `yaml:"id"`
	Options []string `yaml:"options"`
	Element string   `yaml:"element"`
}

// LoadQuestions reads a question sheet. path may be a YAML file, a single
// Markdown file, or a directory of Markdown files read in name order.
func LoadQuestions(path string) ([]model.QuestionInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	if info.IsDir() {
		return loadQuestionDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	if isMarkdown(path) {
		q, err := ParseQuestionMarkdown(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if q.ID == "" {
			q.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return []model.QuestionInput{q}, nil
	}
	qs, err := ParseQuestionSheet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qs, nil
}

// ParseQuestionSheet parses a YAML question sheet. Questions without an ID
// are numbered from q1.
func ParseQuestionSheet(data []byte) ([]model.QuestionInput, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse question sheet: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var qs []model.QuestionInput
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&qs); err != nil {
			return nil, fmt.Errorf("failed to parse question sheet: %w", err)
		}
	case yaml.MappingNode:
		var sheet questionSheet
		if err := node.Content[0].Decode(&sheet); err != nil {
			return nil, fmt.Errorf("failed to parse question sheet: %w", err)
		}
		qs = sheet.Questions
	default:
		return nil, errors.New("question sheet must be a list or a mapping with a questions key")
	}

	for i := range qs {
		if strings.TrimSpace(qs[i].Text) == "" {
			return nil, fmt.Errorf("question %d: text is required", i+1)
		}
		if qs[i].ID == "" {
			qs[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return qs, nil
}

// ParseQuestionMarkdown parses one Markdown question with optional YAML
// frontmatter.
func ParseQuestionMarkdown(data []byte) (model.QuestionInput, error) {
	var fm questionFrontmatter
	yamlFormat := frontmatter.NewFormat("---", "---", yaml.Unmarshal)
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm, yamlFormat)
	if err != nil {
		return model.QuestionInput{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return model.QuestionInput{}, errors.New("question text is required")
	}
	return model.QuestionInput{
		ID:      fm.ID,
		Text:    text,
		Options: fm.Options,
		Element: fm.Element,
	}, nil
}

func loadQuestionDir(dir string) ([]model.QuestionInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isMarkdown(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	qs := make([]model.QuestionInput, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read question: %w", err)
		}
		q, err := ParseQuestionMarkdown(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if q.ID == "" {
			q.ID = strings.TrimSuffix(name, filepath.Ext(name))
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
