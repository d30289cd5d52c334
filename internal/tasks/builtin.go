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

import "fmt"

// BuiltinTriggers is the fixed trigger table. Order decides ties: when a
// task contains several phrases the earliest entry wins.
var BuiltinTriggers = []Trigger{
	{"install uv", "generate_data"},
	{"generate data", "generate_data"},
	{"format markdown", "format_markdown"},
	{"format.md", "format_markdown"},
	{"count wednesdays", "count_wednesdays"},
	{"count days", "count_wednesdays"},
	{"sort contacts", "sort_contacts"},
	{"extract logs", "extract_recent_logs"},
	{"recent logs", "extract_recent_logs"},
	{"index markdown", "create_markdown_index"},
	{"create index", "create_markdown_index"},
	{"extract email sender", "extract_email_sender"},
	{"email.txt", "extract_email_sender"},
	{"extract credit card", "extract_credit_card"},
	{"credit-card.png", "extract_credit_card"},
	{"find similar comments", "find_similar_comments"},
	{"comments.txt", "find_similar_comments"},
	{"total sales", "calculate_ticket_sales"},
	{"gold tickets", "calculate_ticket_sales"},
	{"count words", "count_words"},
	{"fetch api data", "fetch_and_save_api_data"},
	{"clone repo", "clone_and_commit_repo"},
	{"run sql", "run_sql_query"},
	{"scrape website", "scrape_website"},
	{"compress image", "compress_image"},
	{"transcribe audio", "transcribe_audio"},
	{"convert markdown", "markdown_to_html"},
	{"filter csv", "filter_csv"},
}

// Builtin registers every operation against env and returns the frozen registry.
func Builtin(env *Env) (*Registry, error) {
	if env == nil || env.Guard == nil {
		return nil, fmt.Errorf("tasks: env with a path guard is required")
	}
	env.normalize()

	define := func(id, description string, params map[string]interface{}, run RunFunc) Operation {
		return &OperationDefinition{
			IDValue:          id,
			DescriptionValue: description,
			ParametersValue:  params,
			DefaultsValue:    env.defaultsFor(id),
			RunFunc:          run,
		}
	}

	ops := []Operation{
		define("generate_data", "Download and run the data generation script",
			schemaParametersFor[generateDataArgs](), env.generateData),
		define("format_markdown", "Format format.md with the configured formatter",
			schemaParametersFor[formatMarkdownArgs](), env.formatMarkdown),
		define("count_wednesdays", "Count the Wednesdays listed in dates.txt",
			schemaParametersFor[noArgs](), env.countWednesdays),
		define("sort_contacts", "Sort contacts.json by last then first name",
			schemaParametersFor[noArgs](), env.sortContacts),
		define("extract_recent_logs", "Collect the first line of the ten newest logs",
			schemaParametersFor[noArgs](), env.extractRecentLogs),
		define("create_markdown_index", "Index the first heading of every docs markdown file",
			schemaParametersFor[noArgs](), env.createMarkdownIndex),
		define("extract_email_sender", "Extract the sender address from email.txt",
			schemaParametersFor[noArgs](), env.extractEmailSender),
		define("extract_credit_card", "Read the card number from credit-card.png",
			schemaParametersFor[noArgs](), env.extractCreditCard),
		define("find_similar_comments", "Find the most similar pair of lines in comments.txt",
			schemaParametersFor[noArgs](), env.findSimilarComments),
		define("calculate_ticket_sales", "Total the Gold ticket sales in ticket-sales.db",
			schemaParametersFor[noArgs](), env.calculateTicketSales),
		define("count_words", "Count the words in sample.txt",
			schemaParametersFor[noArgs](), env.countWords),
		define("fetch_and_save_api_data", "Fetch a URL and save the body",
			schemaParametersFor[fetchAPIArgs](), env.fetchAndSaveAPIData),
		define("clone_and_commit_repo", "Clone or pull a repository and commit a file",
			schemaParametersFor[cloneRepoArgs](), env.cloneAndCommitRepo),
		define("run_sql_query", "Run a read-only query against a sqlite or duckdb file",
			schemaParametersFor[sqlQueryArgs](), env.runSQLQuery),
		define("scrape_website", "Save the visible text of a web page",
			schemaParametersFor[scrapeArgs](), env.scrapeWebsite),
		define("compress_image", "Re-encode an image as JPEG",
			schemaParametersFor[compressImageArgs](), env.compressImage),
		define("transcribe_audio", "Transcribe an audio file",
			schemaParametersFor[transcribeArgs](), env.transcribeAudio),
		define("markdown_to_html", "Render a markdown file to HTML",
			schemaParametersFor[markdownArgs](), env.markdownToHTML),
		define("filter_csv", "Return CSV rows whose column equals a value",
			schemaParametersFor[filterCSVArgs](), env.filterCSV),
	}

	return NewRegistry(ops, BuiltinTriggers)
}
