// Package search finds image URLs through the Google Custom Search API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

const endpoint = "https://www.googleapis.com/customsearch/v1"

// Config holds the API credentials and result filters.
type Config struct {
	APIKey       string
	EngineID     string
	SafeSearch   string // "active", "off"
	SiteRestrict string // optional, limits results to one site
}

// Client queries the Custom Search JSON API.
type Client struct {
	cfg  Config
	http *http.Client
	base string

	shuffle func(n int, swap func(i, j int))
}

// New creates a search client.
func New(cfg Config) *Client {
	if cfg.SafeSearch == "" {
		cfg.SafeSearch = "active"
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    endpoint,
		shuffle: rand.Shuffle,
	}
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Search returns up to count image URLs for query, sampled at random from the
// first page of results. Fewer than count, or none, is not an error.
func (c *Client) Search(ctx context.Context, query string, count int) ([]string, error) {
	if count <= 0 {
		count = 1
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", "10")
	params.Set("safe", c.cfg.SafeSearch)
	params.Set("imgSize", "large")
	params.Set("imgType", "photo")
	if c.cfg.SiteRestrict != "" {
		params.Set("siteSearch", c.cfg.SiteRestrict)
		params.Set("siteSearchFilter", "i")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image search: unexpected status %s", resp.Status)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	links := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	c.shuffle(len(links), func(i, j int) { links[i], links[j] = links[j], links[i] })
	if len(links) > count {
		links = links[:count]
	}
	return links, nil
}
