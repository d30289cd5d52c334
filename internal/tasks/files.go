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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	apperrors "taskgate/internal/errors"
)

const recentLogCount = 10

// Date layouts produced by the data generator, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"02-Jan-2006",
	"Jan 02, 2006",
	"January 2, 2006",
}

func (e *Env) formatMarkdown(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in formatMarkdownArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.File == "" {
		in.File = "format.md"
	}

	path, err := e.Guard.Resolve(in.File)
	if err != nil {
		return nil, err
	}
	if _, err := e.statInput(path); err != nil {
		return nil, err
	}
	if e.Settings.FormatterCommand == "" {
		return nil, apperrors.New(apperrors.CodeUnsupported, "no markdown formatter configured")
	}

	unlock := e.Outputs.Lock(path)
	defer unlock()

	cmdArgs := append(append([]string{}, e.Settings.FormatterArgs...), path)
	if _, err := e.Runner.Run(ctx, e.Guard.Root(), e.Settings.FormatterCommand, cmdArgs...); err != nil {
		if apperrors.Is(err, apperrors.CodeUnsupported) {
			return nil, err
		}
		return Failure(err.Error()), nil
	}
	return Success("Markdown formatted successfully"), nil
}

func (e *Env) countWednesdays(ctx context.Context, args map[string]interface{}) (*Result, error) {
	_, data, err := e.readInput("dates.txt")
	if err != nil {
		return nil, err
	}

	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		date, err := parseDate(text)
		if err != nil {
			return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unrecognized date on line %d: %q", line, text)
		}
		if date.Weekday() == time.Wednesday {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dates: %w", err)
	}

	if _, err := e.writeOutput("dates-wednesdays.txt", []byte(strconv.Itoa(count))); err != nil {
		return nil, err
	}
	return Success(fmt.Sprintf("%d Wednesdays counted", count)), nil
}

func parseDate(text string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		date, err := time.Parse(layout, text)
		if err == nil {
			return date, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (e *Env) sortContacts(ctx context.Context, args map[string]interface{}) (*Result, error) {
	_, data, err := e.readInput("contacts.json")
	if err != nil {
		return nil, err
	}

	var contacts []map[string]interface{}
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "contacts.json is not a JSON array of objects", err)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		li, lj := stringField(contacts[i], "last_name"), stringField(contacts[j], "last_name")
		if li != lj {
			return li < lj
		}
		return stringField(contacts[i], "first_name") < stringField(contacts[j], "first_name")
	})

	out, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode contacts: %w", err)
	}
	if _, err := e.writeOutput("contacts-sorted.json", out); err != nil {
		return nil, err
	}
	return Success("Contacts sorted successfully"), nil
}

func stringField(record map[string]interface{}, key string) string {
	if value, ok := record[key].(string); ok {
		return value
	}
	return ""
}

func (e *Env) extractRecentLogs(ctx context.Context, args map[string]interface{}) (*Result, error) {
	logsDir, err := e.Guard.Resolve("logs")
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(logsDir, "*.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	files := make([]logFile, 0, len(matches))
	for _, match := range matches {
		path, err := e.Guard.Resolve(match)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, logFile{path: path, modTime: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	if len(files) > recentLogCount {
		files = files[:recentLogCount]
	}

	var out bytes.Buffer
	for _, file := range files {
		first, err := firstLine(file.path)
		if err != nil {
			return nil, err
		}
		out.WriteString(first)
		if !strings.HasSuffix(first, "\n") {
			out.WriteString("\n")
		}
	}

	if _, err := e.writeOutput("logs-recent.txt", out.Bytes()); err != nil {
		return nil, err
	}
	return Success("Recent logs extracted"), nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return line, nil
}

func (e *Env) createMarkdownIndex(ctx context.Context, args map[string]interface{}) (*Result, error) {
	docsDir, err := e.Guard.Resolve("docs")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(docsDir); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "File not found: %s", docsDir)
		}
		return nil, err
	}

	index := map[string]string{}
	err = filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		resolved, err := e.Guard.Resolve(path)
		if err != nil {
			return err
		}
		title, err := firstHeading(resolved)
		if err != nil {
			return err
		}
		if title == "" {
			return nil
		}
		rel, err := filepath.Rel(docsDir, path)
		if err != nil {
			return err
		}
		index[filepath.ToSlash(rel)] = title
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	if _, err := e.writeOutput(filepath.Join("docs", "index.json"), out); err != nil {
		return nil, err
	}
	return Success("Markdown index created"), nil
}

func firstHeading(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# ")), nil
		}
	}
	return "", scanner.Err()
}

func (e *Env) extractEmailSender(ctx context.Context, args map[string]interface{}) (*Result, error) {
	_, data, err := e.readInput("email.txt")
	if err != nil {
		return nil, err
	}

	sender := senderAddress(data)
	if sender == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "no sender found in email.txt")
	}

	output, err := e.writeOutput("email-sender.txt", []byte(sender))
	if err != nil {
		return nil, err
	}
	result := Success("Email sender extracted")
	result.Output = output
	return result, nil
}

// senderAddress prefers the parsed From header and falls back to the text
// after the last ": " on the first line.
func senderAddress(data []byte) string {
	if msg, err := mail.ReadMessage(bytes.NewReader(data)); err == nil {
		if from := msg.Header.Get("From"); from != "" {
			if addr, err := mail.ParseAddress(from); err == nil {
				return addr.Address
			}
		}
	}
	first := strings.SplitN(string(data), "\n", 2)[0]
	parts := strings.Split(first, ": ")
	return strings.TrimSpace(parts[len(parts)-1])
}

func (e *Env) countWords(ctx context.Context, args map[string]interface{}) (*Result, error) {
	_, data, err := e.readInput("sample.txt")
	if err != nil {
		return nil, err
	}
	count := len(strings.Fields(string(data)))

	output, err := e.writeOutput("word-count.txt", []byte(strconv.Itoa(count)))
	if err != nil {
		return nil, err
	}
	return Success(fmt.Sprintf("Word count saved in %s", output)), nil
}

func (e *Env) findSimilarComments(ctx context.Context, args map[string]interface{}) (*Result, error) {
	_, data, err := e.readInput("comments.txt")
	if err != nil {
		return nil, err
	}

	var comments []string
	for _, line := range strings.Split(string(data), "\n") {
		if text := strings.TrimSpace(line); text != "" {
			comments = append(comments, text)
		}
	}
	if len(comments) < 2 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "comments.txt needs at least two comments")
	}
	if e.AI == nil {
		return nil, apperrors.New(apperrors.CodeUnsupported, "no embeddings client configured")
	}

	resp, err := e.AI.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: comments,
		Model: openai.EmbeddingModel(e.Settings.EmbeddingModel),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, "embedding request failed", err)
	}
	vectors := make([][]float32, len(comments))
	for _, item := range resp.Data {
		if item.Index >= 0 && item.Index < len(vectors) {
			vectors[item.Index] = item.Embedding
		}
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, apperrors.Newf(apperrors.CodeUpstream, "embedding missing for comment %d", i)
		}
	}

	bestI, bestJ, best := 0, 1, math.Inf(-1)
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			if sim := cosineSimilarity(vectors[i], vectors[j]); sim > best {
				bestI, bestJ, best = i, j, sim
			}
		}
	}

	out := comments[bestI] + "\n" + comments[bestJ]
	if _, err := e.writeOutput("comments-similar.txt", []byte(out)); err != nil {
		return nil, err
	}
	return Success("Most similar comments written"), nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
