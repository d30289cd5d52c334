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
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const userAgent = "taskgate/1.0"

// get issues a GET and returns the status code with the size-limited body.
func (e *Env) get(ctx context.Context, url, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := e.readLimited(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

func (e *Env) fetchAndSaveAPIData(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in fetchAPIArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := requireStrings("url", in.URL, "filename", in.Filename); err != nil {
		return nil, err
	}
	// Resolve before any network traffic so a bad destination never fetches.
	if _, err := e.Guard.Resolve(in.Filename); err != nil {
		return nil, err
	}

	status, body, err := e.get(ctx, in.URL, "application/json, */*")
	if err != nil {
		if status == 0 {
			return Failure(fmt.Sprintf("Failed to fetch data: %v", err)), nil
		}
		return nil, err
	}
	if !isSuccessStatus(status) {
		return Failure(fmt.Sprintf("Failed to fetch data (HTTP %d)", status)), nil
	}

	output, err := e.writeOutput(in.Filename, body)
	if err != nil {
		return nil, err
	}
	result := Success(fmt.Sprintf("Data saved to %s", in.Filename))
	result.Output = output
	return result, nil
}

func (e *Env) scrapeWebsite(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in scrapeArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := requireStrings("url", in.URL); err != nil {
		return nil, err
	}
	if in.Output == "" {
		in.Output = "scraped.txt"
	}
	if _, err := e.Guard.Resolve(in.Output); err != nil {
		return nil, err
	}

	status, body, err := e.get(ctx, in.URL, "text/html,application/xhtml+xml,*/*;q=0.8")
	if err != nil {
		if status == 0 {
			return Failure("Failed to fetch website"), nil
		}
		return nil, err
	}
	if !isSuccessStatus(status) {
		return Failure("Failed to fetch website"), nil
	}

	text, err := visibleText(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	output, err := e.writeOutput(in.Output, []byte(text))
	if err != nil {
		return nil, err
	}
	result := Success("Website data saved")
	result.Output = output
	return result, nil
}

// visibleText returns the text nodes of an HTML document one per line,
// skipping non-rendered elements.
func visibleText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				lines = append(lines, text)
			}
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "svg", "head":
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(lines, "\n"), nil
}
