// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "taskgate/internal/errors"
)

func TestCountWednesdays(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "dates.txt", "2024-01-03\n2024/01/10\n\nJan 17, 2024\n2024-01-04\n02-Jan-2024\n")

	result := runOp(t, env, "count_wednesdays", nil)
	expectSuccess(t, result, "3 Wednesdays counted")
	if got := readFile(t, root, "dates-wednesdays.txt"); got != "3" {
		t.Fatalf("output = %q, want 3", got)
	}
}

func TestCountWednesdaysRejectsUnknownLayout(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "dates.txt", "2024-01-03\nnot a date\n")

	result := runOp(t, env, "count_wednesdays", nil)
	expectFailure(t, result, "")
	if !strings.Contains(result.Message, "line 2") {
		t.Fatalf("message = %q, want line number", result.Message)
	}
}

func TestMissingInputIsSoftFailure(t *testing.T) {
	env, root := newTestEnv(t)

	for _, id := range []string{"count_wednesdays", "sort_contacts", "count_words", "extract_email_sender"} {
		result := runOp(t, env, id, nil)
		expectFailure(t, result, "")
		if !strings.HasPrefix(result.Message, "File not found: "+root) {
			t.Fatalf("%s: message = %q", id, result.Message)
		}
	}
}

func TestFormatMarkdown(t *testing.T) {
	env, root := newTestEnv(t)
	runner := &fakeRunner{}
	env.Runner = runner
	env.Settings.FormatterCommand = "npx"
	env.Settings.FormatterArgs = []string{"prettier", "--write"}

	result := runOp(t, env, "format_markdown", nil)
	expectFailure(t, result, "File not found: "+filepath.Join(root, "format.md"))
	if len(runner.calls) != 0 {
		t.Fatalf("formatter ran for missing file: %+v", runner.calls)
	}

	path := writeFile(t, root, "format.md", "#  Title\n")
	result = runOp(t, env, "format_markdown", nil)
	expectSuccess(t, result, "Markdown formatted successfully")

	want := []runnerCall{{Dir: root, Name: "npx", Args: []string{"prettier", "--write", path}}}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("runner calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatMarkdownCommandFailure(t *testing.T) {
	env, root := newTestEnv(t)
	env.Runner = &fakeRunner{err: errors.New("command npx failed: exit status 2")}
	env.Settings.FormatterCommand = "npx"
	writeFile(t, root, "format.md", "# Title\n")

	result := runOp(t, env, "format_markdown", nil)
	expectFailure(t, result, "command npx failed: exit status 2")
}

func TestSortContacts(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "contacts.json", `[
		{"first_name": "Zoe", "last_name": "Adams", "email": "z@example.com"},
		{"first_name": "Bob", "last_name": "Young", "email": "b@example.com"},
		{"first_name": "Amy", "last_name": "Adams", "email": "a@example.com"}
	]`)

	result := runOp(t, env, "sort_contacts", nil)
	expectSuccess(t, result, "Contacts sorted successfully")

	var sorted []map[string]string
	if err := json.Unmarshal([]byte(readFile(t, root, "contacts-sorted.json")), &sorted); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	var names []string
	for _, c := range sorted {
		names = append(names, c["first_name"]+" "+c["last_name"])
	}
	want := []string{"Amy Adams", "Zoe Adams", "Bob Young"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if sorted[0]["email"] != "a@example.com" {
		t.Fatalf("extra fields not preserved: %+v", sorted[0])
	}
}

func TestExtractRecentLogs(t *testing.T) {
	env, root := newTestEnv(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		path := writeFile(t, root, fmt.Sprintf("logs/log-%02d.log", i), fmt.Sprintf("first %d\nsecond %d\n", i, i))
		mtime := base.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	writeFile(t, root, "logs/readme.txt", "ignored\n")

	result := runOp(t, env, "extract_recent_logs", nil)
	expectSuccess(t, result, "Recent logs extracted")

	var want strings.Builder
	for i := 11; i >= 2; i-- {
		fmt.Fprintf(&want, "first %d\n", i)
	}
	if got := readFile(t, root, "logs-recent.txt"); got != want.String() {
		t.Fatalf("output = %q, want %q", got, want.String())
	}
}

func TestCreateMarkdownIndex(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "docs/intro.md", "Some preface\n# Introduction\n## Sub\n")
	writeFile(t, root, "docs/guide/setup.md", "# Setup Guide\n")
	writeFile(t, root, "docs/empty.md", "no heading here\n")
	writeFile(t, root, "docs/notes.txt", "# Not markdown\n")

	result := runOp(t, env, "create_markdown_index", nil)
	expectSuccess(t, result, "Markdown index created")

	var index map[string]string
	if err := json.Unmarshal([]byte(readFile(t, root, "docs/index.json")), &index); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	want := map[string]string{
		"intro.md":       "Introduction",
		"guide/setup.md": "Setup Guide",
	}
	if diff := cmp.Diff(want, index); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateMarkdownIndexMissingDocs(t *testing.T) {
	env, _ := newTestEnv(t)
	result := runOp(t, env, "create_markdown_index", nil)
	expectFailure(t, result, "")
}

func TestExtractEmailSender(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{
			name:  "rfc header",
			email: "From: \"Jane Doe\" <jane@example.com>\nTo: bob@example.com\nSubject: Hi\n\nBody\n",
			want:  "jane@example.com",
		},
		{
			name:  "bare first line",
			email: "sender: jane@example.com\nno headers here",
			want:  "jane@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, root := newTestEnv(t)
			writeFile(t, root, "email.txt", tt.email)

			result := runOp(t, env, "extract_email_sender", nil)
			expectSuccess(t, result, "Email sender extracted")
			if got := readFile(t, root, "email-sender.txt"); got != tt.want {
				t.Fatalf("sender = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "sample.txt", "one two\tthree\n\nfour  five\n")

	result := runOp(t, env, "count_words", nil)
	expectSuccess(t, result, "Word count saved in "+filepath.Join(root, "word-count.txt"))
	if got := readFile(t, root, "word-count.txt"); got != "5" {
		t.Fatalf("count = %q, want 5", got)
	}
}

func TestFindSimilarComments(t *testing.T) {
	env, root := newTestEnv(t)
	env.AI = &fakeAI{vectors: map[string][]float32{
		"great product":        {1, 0},
		"awful service":        {0, 1},
		"really great product": {0.9, 0.1},
	}}
	writeFile(t, root, "comments.txt", "great product\nawful service\n\nreally great product\n")

	result := runOp(t, env, "find_similar_comments", nil)
	expectSuccess(t, result, "Most similar comments written")
	if got := readFile(t, root, "comments-similar.txt"); got != "great product\nreally great product" {
		t.Fatalf("output = %q", got)
	}
}

func TestFindSimilarCommentsFailures(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "comments.txt", "only one\n")
	result := runOp(t, env, "find_similar_comments", nil)
	expectFailure(t, result, "")

	writeFile(t, root, "comments.txt", "one\ntwo\n")
	result = runOp(t, env, "find_similar_comments", nil)
	expectFailure(t, result, "no embeddings client configured")

	env.AI = &fakeAI{err: errors.New("boom")}
	registry, err := Builtin(env)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	op, _ := registry.ResolveByIdentifier("find_similar_comments")
	_, err = op.Run(context.Background(), nil)
	if !apperrors.Is(err, apperrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestEscapingDestinationIsRejected(t *testing.T) {
	env, _ := newTestEnv(t)
	registry, err := Builtin(env)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	op, _ := registry.ResolveByIdentifier("fetch_and_save_api_data")

	_, err = op.Run(context.Background(), map[string]interface{}{
		"url":      "http://127.0.0.1:1/never",
		"filename": "../outside.json",
	})
	if !apperrors.Is(err, apperrors.CodePathViolation) {
		t.Fatalf("expected path violation, got %v", err)
	}
}

func TestSymlinkedInputOutsideRootIsRejected(t *testing.T) {
	env, root := newTestEnv(t)
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret words"), 0o644); err != nil {
		t.Fatalf("write outside: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "sample.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	registry, err := Builtin(env)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	op, _ := registry.ResolveByIdentifier("count_words")
	_, err = op.Run(context.Background(), nil)
	if !apperrors.Is(err, apperrors.CodePathViolation) {
		t.Fatalf("expected path violation, got %v", err)
	}
}
