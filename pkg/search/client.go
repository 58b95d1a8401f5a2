// Package search provides the literature search client and its gateway
// invocation adapter. Search calls are metered as one input unit per
// request regardless of the result count.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/gateway"
	"github.com/yapay-ai/provider-sentinel/pkg/retry"
)

const (
	defaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"
	defaultLimit   = 25
	maxLimit       = 100
)

// Article is one literature search hit.
type Article struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors,omitempty"`
	Journal  string `json:"journal,omitempty"`
	Year     string `json:"year,omitempty"`
	DOI      string `json:"doi,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// Query describes one search request.
type Query struct {
	Term  string `json:"term"`
	Limit int    `json:"limit,omitempty"`
}

// Params returns the cache-key parameters for the query, normalized the
// same way Search normalizes them so equivalent calls share an entry.
func (q Query) Params() map[string]any {
	return map[string]any{"term": q.Term, "limit": clampLimit(q.Limit)}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Client queries the Europe PMC REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a search client. An empty baseURL uses the public
// Europe PMC endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider identifier used in rate tables.
func (c *Client) Name() string { return "europepmc" }

// Search runs the query and returns matching articles.
func (c *Client) Search(ctx context.Context, q Query) ([]Article, error) {
	if strings.TrimSpace(q.Term) == "" {
		return nil, retry.Permanent(fmt.Errorf("empty search term"))
	}
	limit := clampLimit(q.Limit)

	params := url.Values{}
	params.Set("query", q.Term)
	params.Set("format", "json")
	params.Set("resultType", "core")
	params.Set("pageSize", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call search api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%s returned status %d", c.Name(), resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusTooManyRequests &&
			resp.StatusCode != http.StatusRequestTimeout {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	articles := make([]Article, 0, len(parsed.ResultList.Result))
	for _, r := range parsed.ResultList.Result {
		articles = append(articles, Article{
			ID:       r.ID,
			Title:    r.Title,
			Authors:  r.AuthorString,
			Journal:  r.JournalTitle,
			Year:     r.PubYear,
			DOI:      r.DOI,
			Abstract: r.AbstractText,
		})
	}
	return articles, nil
}

// Invoke builds the gateway invocation for a query. The serialized
// article list is the cached value; each call bills one input unit.
func (c *Client) Invoke(q Query) gateway.InvokeFunc {
	return func(ctx context.Context, provider string) (*gateway.Invocation, error) {
		if provider != c.Name() {
			return nil, retry.Permanent(fmt.Errorf("no search client for provider %q", provider))
		}

		articles, err := c.Search(ctx, q)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(articles)
		if err != nil {
			return nil, fmt.Errorf("marshal search results: %w", err)
		}

		return &gateway.Invocation{
			Value:      value,
			Model:      "search",
			InputUnits: 1,
		}, nil
	}
}

type searchResponse struct {
	ResultList struct {
		Result []struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			AuthorString string `json:"authorString"`
			JournalTitle string `json:"journalTitle"`
			PubYear      string `json:"pubYear"`
			DOI          string `json:"doi"`
			AbstractText string `json:"abstractText"`
		} `json:"result"`
	} `json:"resultList"`
}
