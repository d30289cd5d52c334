package systemprompt

import (
	"os"
	"sort"
	"strings"
	"testing"
)

func TestLoadConcatenatesPromptFiles(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read system_prompt dir: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}

	if len(names) == 0 {
		t.Fatal("expected at least one .txt file in system_prompt")
	}

	sort.Strings(names)

	var expected strings.Builder
	for idx, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		content := string(data)
		expected.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			expected.WriteString("\n")
		}
		if idx < len(names)-1 {
			expected.WriteString("\n")
		}
	}

	prompt, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if prompt != expected.String() {
		t.Fatalf("Load() output mismatch")
	}
}

func TestClassifierListsOperations(t *testing.T) {
	prompt, err := Classifier([]string{"sort_contacts", "filter_csv"})
	if err != nil {
		t.Fatalf("Classifier() error: %v", err)
	}
	if !strings.HasPrefix(prompt, "Translate the task description into a function name.") {
		t.Fatalf("expected fixed instruction first, got %q", prompt)
	}
	if !strings.Contains(prompt, "- sort_contacts\n- filter_csv\n") {
		t.Fatalf("expected identifiers in order, got %q", prompt)
	}
}
