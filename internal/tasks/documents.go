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
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	apperrors "taskgate/internal/errors"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func (e *Env) markdownToHTML(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in markdownArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.MDFile == "" {
		in.MDFile = "input.md"
	}
	if in.HTMLFile == "" {
		in.HTMLFile = "output.html"
	}
	if _, err := e.Guard.Resolve(in.HTMLFile); err != nil {
		return nil, err
	}

	_, source, err := e.readInput(in.MDFile)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := markdown.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	output, err := e.writeOutput(in.HTMLFile, buf.Bytes())
	if err != nil {
		return nil, err
	}
	result := Success(fmt.Sprintf("Converted %s to %s", in.MDFile, in.HTMLFile))
	result.Output = output
	return result, nil
}

func (e *Env) filterCSV(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in filterCSVArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := requireStrings("csv_file", in.CSVFile, "column", in.Column); err != nil {
		return nil, err
	}

	_, data, err := e.readInput(in.CSVFile)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "%s has no header row", in.CSVFile)
		}
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid csv", err)
	}
	column := -1
	for i, name := range header {
		if name == in.Column {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown column: %s", in.Column)
	}

	rows := make([]map[string]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid csv", err)
		}
		if column >= len(record) || record[column] != in.Value {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	result := Success(fmt.Sprintf("%d rows matched", len(rows)))
	result.Data = rows
	return result, nil
}
