// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arxiv searches the arXiv Atom API for papers in one category.
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/retrieval"
	"github.com/poiesic/convergence/retry"
)

// Defaults for the arXiv API.
const (
	DefaultBaseURL = "https://export.arxiv.org/api/query"
	DefaultTimeout = 30 * time.Second
)

// maxResponseBytes bounds how much of a response is read.
const maxResponseBytes = 8 << 20

// ErrUnexpectedStatus indicates a non-200 response.
var ErrUnexpectedStatus = errors.New("unexpected arXiv response status")

// Client implements retrieval.Retriever against the arXiv API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
}

var _ retrieval.Retriever = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		c.baseURL = raw
		return nil
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// WithNow replaces the clock used for the recency window.
func WithNow(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// NewClient creates an arXiv client.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "arxiv")
	return c, nil
}

// BuildQuery renders the search_query for one category and keyword list,
// e.g. (cat:cs.CR) AND (ti:"zero knowledge" OR ti:rollups OR abs:"zero knowledge" OR abs:rollups).
// Multi-word keywords are quoted as phrases.
func BuildQuery(categoryCode string, keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(kw, "\"", "")))
		if kw == "" {
			continue
		}
		if strings.ContainsAny(kw, " \t") {
			kw = "\"" + kw + "\""
		}
		terms = append(terms, kw)
	}

	query := "(cat:" + categoryCode + ")"
	if len(terms) == 0 {
		return query
	}

	fields := make([]string, 0, 2*len(terms))
	for _, prefix := range []string{"ti:", "abs:"} {
		for _, t := range terms {
			fields = append(fields, prefix+t)
		}
	}
	return query + " AND (" + strings.Join(fields, " OR ") + ")"
}

// Search queries arXiv for papers in q.CategoryCode matching any keyword.
// Without keywords no request is made. When q.RecencyWindow is set only
// papers published within it are kept; if none are, the single most recent
// paper is returned instead.
func (c *Client) Search(ctx context.Context, q retrieval.Query) ([]core.CandidateDocument, error) {
	if len(q.Keywords) == 0 {
		c.logger.Debug("no keywords, skipping search", "category", q.CategoryCode)
		return nil, nil
	}
	if q.CategoryCode == "" {
		return nil, retry.Permanent(errors.New("category code is required"))
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = retrieval.DefaultMaxResults
	}

	params := url.Values{}
	params.Set("search_query", BuildQuery(q.CategoryCode, q.Keywords))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")
	endpoint := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	c.logger.Debug("searching arXiv", "category", q.CategoryCode, "keywords", q.Keywords)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		// Client errors will not get better on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	docs, err := parseFeed(body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("parsing arXiv feed: %w", err))
	}

	docs = c.recent(docs, q.RecencyWindow)
	c.logger.Debug("arXiv search complete", "category", q.CategoryCode, "results", len(docs))
	return docs, nil
}

// recent applies the recency window, falling back to the newest paper.
func (c *Client) recent(docs []core.CandidateDocument, window time.Duration) []core.CandidateDocument {
	if window <= 0 || len(docs) == 0 {
		return docs
	}
	cutoff := c.now().Add(-window)
	kept := make([]core.CandidateDocument, 0, len(docs))
	for _, d := range docs {
		if !d.PublishedAt.IsZero() && !d.PublishedAt.Before(cutoff) {
			kept = append(kept, d)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	c.logger.Debug("no papers inside recency window, using most recent", "window", window)
	newest := slices.MaxFunc(docs, func(a, b core.CandidateDocument) int {
		return a.PublishedAt.Compare(b.PublishedAt)
	})
	return []core.CandidateDocument{newest}
}
