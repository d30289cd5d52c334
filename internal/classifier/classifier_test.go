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

package classifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	apperrors "taskgate/internal/errors"
)

func TestClassifyBuildsFixedMessages(t *testing.T) {
	mock := &MockChatClient{
		CreateCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return replyWith("  sort_contacts\n"), nil
		},
	}
	c, err := New(mock, Options{OperationIDs: []string{"sort_contacts"}, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	name, err := c.Classify(context.Background(), "order my address book")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "sort_contacts" {
		t.Fatalf("expected trimmed identifier, got %q", name)
	}

	if len(mock.CompletionCalls) != 1 {
		t.Fatalf("expected exactly one completion call, got %d", len(mock.CompletionCalls))
	}
	req := mock.CompletionCalls[0]
	if req.Model != DefaultModel {
		t.Fatalf("expected model %s, got %s", DefaultModel, req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem ||
		!strings.HasPrefix(req.Messages[0].Content, "Translate the task description into a function name.") {
		t.Fatalf("unexpected system message: %+v", req.Messages[0])
	}
	if !strings.Contains(req.Messages[0].Content, "- sort_contacts") {
		t.Fatalf("expected catalog in system message, got %q", req.Messages[0].Content)
	}
	if req.Messages[1].Role != openai.ChatMessageRoleUser ||
		req.Messages[1].Content != "Task: order my address book. Respond with function name only." {
		t.Fatalf("unexpected user message: %+v", req.Messages[1])
	}
}

func TestClassifyTransportFailureIsUpstream(t *testing.T) {
	mock := &MockChatClient{
		CreateCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, errors.New("connection refused")
		},
	}
	c, err := New(mock, Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Classify(context.Background(), "anything")
	if !apperrors.Is(err, apperrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError in chain, got %T", err)
	}
}

func TestClassifyTimesOut(t *testing.T) {
	mock := &MockChatClient{
		CreateCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			<-ctx.Done()
			return openai.ChatCompletionResponse{}, ctx.Err()
		},
	}
	c, err := New(mock, Options{Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	_, err = c.Classify(context.Background(), "slow")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !apperrors.Is(err, apperrors.CodeUpstream) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected upstream timeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestClassifyNoChoices(t *testing.T) {
	mock := &MockChatClient{
		CreateCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, nil
		},
	}
	c, _ := New(mock, Options{Logger: zerolog.Nop()})
	if _, err := c.Classify(context.Background(), "x"); !apperrors.Is(err, apperrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"sort_contacts":          "sort_contacts",
		"  filter_csv \n":        "filter_csv",
		"`count_wednesdays`":     "count_wednesdays",
		"\"markdown_to_html\"":   "markdown_to_html",
		"The function is foo()": "The function is foo()",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewClientTalksToBaseURL(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"sort_contacts"}}]}`))
	}))
	defer srv.Close()

	c, err := New(NewClient("secret-token", srv.URL), Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	name, err := c.Classify(context.Background(), "sort")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "sort_contacts" {
		t.Fatalf("expected sort_contacts, got %s", name)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer credential, got %q", gotAuth)
	}
}
