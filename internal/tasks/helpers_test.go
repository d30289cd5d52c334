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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"taskgate/internal/paths"
)

type runnerCall struct {
	Dir  string
	Name string
	Args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []runnerCall
	output string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runnerCall{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	return f.output, f.err
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	return f.text, f.err
}

type fakeAI struct {
	vectors       map[string][]float32
	transcription string
	err           error
	audioRequests []openai.AudioRequest
}

func (f *fakeAI) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	req := conv.Convert()
	inputs, ok := req.Input.([]string)
	if !ok {
		return openai.EmbeddingResponse{}, fmt.Errorf("unexpected input type %T", req.Input)
	}
	resp := openai.EmbeddingResponse{}
	for i, text := range inputs {
		resp.Data = append(resp.Data, openai.Embedding{Embedding: f.vectors[text], Index: i})
	}
	return resp, nil
}

func (f *fakeAI) CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error) {
	f.audioRequests = append(f.audioRequests, request)
	if f.err != nil {
		return openai.AudioResponse{}, f.err
	}
	return openai.AudioResponse{Text: f.transcription}, nil
}

func newTestEnv(t *testing.T) (*Env, string) {
	t.Helper()
	guard, err := paths.NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	env := &Env{
		Guard:  guard,
		Logger: zerolog.Nop(),
		Runner: &fakeRunner{},
		OCR:    fakeOCR{},
	}
	env.normalize()
	return env, guard.Root()
}

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// runOp runs an operation through its definition so soft failures are
// converted the same way the dispatcher sees them.
func runOp(t *testing.T, env *Env, id string, args map[string]interface{}) *Result {
	t.Helper()
	registry, err := Builtin(env)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	op, ok := registry.ResolveByIdentifier(id)
	if !ok {
		t.Fatalf("operation %s not registered", id)
	}
	result, err := op.Run(context.Background(), args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", id, err)
	}
	return result
}

func expectSuccess(t *testing.T, result *Result, message string) {
	t.Helper()
	if !result.OK() {
		t.Fatalf("expected success, got %+v", result)
	}
	if message != "" && result.Message != message {
		t.Fatalf("message = %q, want %q", result.Message, message)
	}
}

func expectFailure(t *testing.T, result *Result, message string) {
	t.Helper()
	if result.OK() {
		t.Fatalf("expected failure, got %+v", result)
	}
	if message != "" && result.Message != message {
		t.Fatalf("message = %q, want %q", result.Message, message)
	}
}
