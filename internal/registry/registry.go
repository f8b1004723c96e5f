// Package registry queries the NuGet search service for the latest version of
// a package.
//
// The search endpoint returns loose matches, so results are narrowed to the
// single record whose id equals the requested identifier ignoring case. No
// match is reported as an absence, not an error; more than one match is an
// error because picking one would be arbitrary.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/obentoo/nugetwatch/internal/common/httpclient"
)

// Error variables for registry errors
var (
	// ErrAmbiguousMatch is returned when several records match the id exactly
	ErrAmbiguousMatch = errors.New("multiple packages match the id exactly")
	// ErrMalformedResponse is returned when the search response cannot be parsed
	ErrMalformedResponse = errors.New("malformed registry response")
	// ErrRequestFailed is returned when the search request cannot complete
	ErrRequestFailed = errors.New("registry request failed")
)

// Package is one search result record.
type Package struct {
	ID             string `json:"id"`
	Version        string `json:"version"`
	Description    string `json:"description,omitempty"`
	TotalDownloads int64  `json:"totalDownloads,omitempty"`
	Verified       bool   `json:"verified,omitempty"`
}

// SearchResponse is the search service response body.
type SearchResponse struct {
	TotalHits int       `json:"totalHits"`
	Data      []Package `json:"data"`
}

// Client queries a search endpoint.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// NewClient creates a registry client for the given search base URL.
func NewClient(baseURL string, hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.New()
	}
	return &Client{baseURL: baseURL, http: hc}
}

// QueryURL builds {base}?q={id}&prerelease=true, keeping any query
// parameters already present on base.
func QueryURL(base, id string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("q", id)
	q.Set("prerelease", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Search fetches and decodes the search results for id.
func (c *Client) Search(ctx context.Context, id string) (*SearchResponse, error) {
	queryURL, err := QueryURL(c.baseURL, id)
	if err != nil {
		return nil, err
	}

	body, err := c.http.Get(ctx, queryURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	return ParseResponse(body)
}

// ParseResponse decodes a search response body. A missing or null data
// field is malformed; an empty array is not.
func ParseResponse(body []byte) (*SearchResponse, error) {
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: missing data field", ErrMalformedResponse)
	}
	return &resp, nil
}

// SelectExact returns the one record whose id equals id ignoring case.
// found is false when nothing matches.
func SelectExact(records []Package, id string) (pkg Package, found bool, err error) {
	for _, r := range records {
		if !strings.EqualFold(r.ID, id) {
			continue
		}
		if found {
			return Package{}, false, fmt.Errorf("%w: %q", ErrAmbiguousMatch, id)
		}
		pkg, found = r, true
	}
	return pkg, found, nil
}

// Lookup returns the latest version of id. found is false when the registry
// has no exact match, which is not an error.
func (c *Client) Lookup(ctx context.Context, id string) (version string, found bool, err error) {
	resp, err := c.Search(ctx, id)
	if err != nil {
		return "", false, err
	}

	pkg, found, err := SelectExact(resp.Data, id)
	if err != nil || !found {
		return "", false, err
	}
	if strings.TrimSpace(pkg.Version) == "" {
		return "", false, fmt.Errorf("%w: package %s has no version", ErrMalformedResponse, pkg.ID)
	}
	return pkg.Version, true, nil
}
