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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarkdownToHTML(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "input.md", "# Title\n\nSome *emphasis* and ~~strike~~.\n")

	result := runOp(t, env, "markdown_to_html", nil)
	expectSuccess(t, result, "Converted input.md to output.html")

	html := readFile(t, root, "output.html")
	for _, want := range []string{"<h1>Title</h1>", "<em>emphasis</em>", "<del>strike</del>"} {
		if !strings.Contains(html, want) {
			t.Fatalf("output missing %q:\n%s", want, html)
		}
	}
}

func TestMarkdownToHTMLMissingSource(t *testing.T) {
	env, _ := newTestEnv(t)
	result := runOp(t, env, "markdown_to_html", map[string]interface{}{"md_file": "absent.md"})
	expectFailure(t, result, "")
}

func TestFilterCSV(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "people.csv", "name,city,age\nAnn,Paris,30\nBen,Rome,41\nCid,Paris,22\nDee,Paris\n")

	result := runOp(t, env, "filter_csv", map[string]interface{}{
		"csv_file": "people.csv",
		"column":   "city",
		"value":    "Paris",
	})
	expectSuccess(t, result, "3 rows matched")

	want := []map[string]string{
		{"name": "Ann", "city": "Paris", "age": "30"},
		{"name": "Cid", "city": "Paris", "age": "22"},
		{"name": "Dee", "city": "Paris", "age": ""},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterCSVUnknownColumn(t *testing.T) {
	env, root := newTestEnv(t)
	writeFile(t, root, "people.csv", "name,city\nAnn,Paris\n")

	result := runOp(t, env, "filter_csv", map[string]interface{}{
		"csv_file": "people.csv",
		"column":   "country",
		"value":    "FR",
	})
	expectFailure(t, result, "unknown column: country")
}
