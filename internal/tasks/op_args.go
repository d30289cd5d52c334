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

type noArgs struct{}

type generateDataArgs struct {
	ScriptURL string `json:"script_url" jsonschema:"description=URL of the data generation script"`
	Email     string `json:"email,omitempty" jsonschema:"description=Email passed to the script as its only argument"`
}

type formatMarkdownArgs struct {
	File string `json:"file,omitempty" jsonschema:"description=Markdown file under the data directory (default format.md)"`
}

type fetchAPIArgs struct {
	URL      string `json:"url" jsonschema:"description=API endpoint to GET"`
	Filename string `json:"filename" jsonschema:"description=Destination file under the data directory"`
}

type cloneRepoArgs struct {
	RepoURL       string `json:"repo_url" jsonschema:"description=Git repository URL to clone"`
	CommitMessage string `json:"commit_message" jsonschema:"description=Message for the generated commit"`
}

type sqlQueryArgs struct {
	DBType string        `json:"db_type" jsonschema:"description=Database engine,enum=sqlite,enum=duckdb"`
	DBFile string        `json:"db_file" jsonschema:"description=Database file under the data directory"`
	Query  string        `json:"query" jsonschema:"description=Single read-only SQL statement"`
	Args   []interface{} `json:"args,omitempty" jsonschema:"description=Positional parameters bound to the query"`
}

type scrapeArgs struct {
	URL    string `json:"url" jsonschema:"description=Web page to scrape"`
	Output string `json:"output,omitempty" jsonschema:"description=Destination file (default scraped.txt)"`
}

type compressImageArgs struct {
	InputImage  string  `json:"input_image" jsonschema:"description=Source image under the data directory"`
	OutputImage string  `json:"output_image" jsonschema:"description=Destination JPEG under the data directory"`
	Quality     float64 `json:"quality,omitempty" jsonschema:"description=JPEG quality between 1 and 100 (default 50)"`
	MaxWidth    float64 `json:"max_width,omitempty" jsonschema:"description=Resize to this width when the image is wider"`
}

type transcribeArgs struct {
	AudioFile string `json:"audio_file" jsonschema:"description=Audio file under the data directory"`
	Output    string `json:"output,omitempty" jsonschema:"description=Destination text file (default transcription.txt)"`
}

type markdownArgs struct {
	MDFile   string `json:"md_file" jsonschema:"description=Markdown source under the data directory"`
	HTMLFile string `json:"html_file" jsonschema:"description=HTML destination under the data directory"`
}

type filterCSVArgs struct {
	CSVFile string `json:"csv_file" jsonschema:"description=CSV file under the data directory"`
	Column  string `json:"column" jsonschema:"description=Header name to filter on"`
	Value   string `json:"value" jsonschema:"description=Exact value to keep"`
}
