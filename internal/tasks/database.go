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
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	_ "github.com/marcboeller/go-duckdb"
	_ "modernc.org/sqlite"

	apperrors "taskgate/internal/errors"
)

const maxQueryRows = 10000

var readStatements = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"DESCRIBE": true,
	"SHOW":     true,
	"VALUES":   true,
}

// sqliteURI builds a file: URI with the path escaped, so '?' and '#' in a
// file name stay part of the path.
func sqliteURI(path, mode string) string {
	return (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=" + mode}).String()
}

// openReadOnly opens the database file without write access.
func openReadOnly(dbType, path string) (*sql.DB, error) {
	var driver, dsn string
	switch dbType {
	case "sqlite":
		driver, dsn = "sqlite", sqliteURI(path, "ro")
	case "duckdb":
		// duckdb cuts the DSN at the first '?' and url-parses the rest, so
		// these characters would drop the access mode.
		if strings.ContainsAny(path, "?#") {
			return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "duckdb file name must not contain '?' or '#': %s", filepath.Base(path))
		}
		driver, dsn = "duckdb", path+"?access_mode=read_only"
	default:
		return nil, apperrors.New(apperrors.CodeUnsupported, "Unsupported database type")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}
	return db, nil
}

func (e *Env) runSQLQuery(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in sqlQueryArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	in.DBType = strings.ToLower(strings.TrimSpace(in.DBType))
	if in.DBType == "" {
		in.DBType = "sqlite"
	}
	if in.DBType != "sqlite" && in.DBType != "duckdb" {
		return nil, apperrors.New(apperrors.CodeUnsupported, "Unsupported database type")
	}
	if err := requireStrings("db_file", in.DBFile, "query", in.Query); err != nil {
		return nil, err
	}
	query, err := checkReadOnlyStatement(in.Query)
	if err != nil {
		return nil, err
	}

	path, err := e.Guard.Resolve(in.DBFile)
	if err != nil {
		return nil, err
	}
	if _, err := e.statInput(path); err != nil {
		return nil, err
	}

	db, err := openReadOnly(in.DBType, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, in.Args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "query failed", err)
	}
	defer rows.Close()

	columns, data, err := collectRows(rows)
	if err != nil {
		return nil, err
	}

	result := Success(fmt.Sprintf("Query returned %d rows", len(data)))
	result.Columns = columns
	result.Data = data
	return result, nil
}

func collectRows(rows *sql.Rows) ([]string, [][]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	data := make([][]interface{}, 0)
	for rows.Next() {
		if len(data) >= maxQueryRows {
			return nil, nil, apperrors.Newf(apperrors.CodeInvalidArgument, "query returned more than %d rows", maxQueryRows)
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, value := range values {
			if b, ok := value.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "query failed", err)
	}
	return columns, data, nil
}

// checkReadOnlyStatement accepts exactly one statement whose leading keyword
// is a read statement and returns it without trailing semicolons.
func checkReadOnlyStatement(query string) (string, error) {
	body, err := singleStatement(query)
	if err != nil {
		return "", err
	}
	keyword := leadingKeyword(body)
	if keyword == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "empty query")
	}
	if !readStatements[keyword] {
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "only read-only statements are allowed, got %s", keyword)
	}
	return body, nil
}

// singleStatement strips comments and trailing semicolons and rejects
// input carrying more than one statement. Quoted text is left untouched.
func singleStatement(query string) (string, error) {
	var out strings.Builder
	runes := []rune(query)
	ended := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"' || r == '`':
			if ended {
				return "", apperrors.New(apperrors.CodeInvalidArgument, "only one statement is allowed")
			}
			j := i + 1
			for ; j < len(runes); j++ {
				if runes[j] == r {
					if j+1 < len(runes) && runes[j+1] == r {
						j++
						continue
					}
					break
				}
			}
			if j >= len(runes) {
				return "", apperrors.New(apperrors.CodeInvalidArgument, "unterminated quoted string")
			}
			out.WriteString(string(runes[i : j+1]))
			i = j
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			out.WriteRune(' ')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			j := i + 2
			for ; j+1 < len(runes); j++ {
				if runes[j] == '*' && runes[j+1] == '/' {
					break
				}
			}
			if j+1 >= len(runes) {
				return "", apperrors.New(apperrors.CodeInvalidArgument, "unterminated comment")
			}
			i = j + 1
			out.WriteRune(' ')
		case r == ';':
			ended = true
		case unicode.IsSpace(r):
			out.WriteRune(r)
		default:
			if ended {
				return "", apperrors.New(apperrors.CodeInvalidArgument, "only one statement is allowed")
			}
			out.WriteRune(r)
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func leadingKeyword(statement string) string {
	end := strings.IndexFunc(statement, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		end = len(statement)
	}
	return strings.ToUpper(statement[:end])
}

func (e *Env) calculateTicketSales(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, err := e.Guard.Resolve("ticket-sales.db")
	if err != nil {
		return nil, err
	}
	if _, err := e.statInput(path); err != nil {
		return nil, err
	}

	db, err := openReadOnly("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var total sql.NullFloat64
	err = db.QueryRowContext(ctx, "SELECT SUM(units * price) FROM tickets WHERE type = ?", "Gold").Scan(&total)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "ticket sales query failed", err)
	}

	value := strconv.FormatFloat(total.Float64, 'f', -1, 64)
	if _, err := e.writeOutput("ticket-sales-gold.txt", []byte(value)); err != nil {
		return nil, err
	}
	return Success("Total sales calculated"), nil
}
