// Package lefrecce is a client for the LeFrecce fares and solutions API.
package lefrecce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

const DefaultBaseURL = "https://www.lefrecce.it/msite/api"

// Client is a LeFrecce API client. Solution ids are only valid within the
// session that produced them, so the client keeps a cookie jar.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	detailsCache gcache.Cache
}

// NewClient creates a new LeFrecce client. Solution details are cached for ttl.
func NewClient(baseURL string, timeout time.Duration, cacheSize int, ttl time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		baseURL:    strings.TrimRight(baseURL, "/"),
		detailsCache: gcache.New(cacheSize).
			LRU().
			Expiration(ttl).
			Build(),
	}, nil
}

// Solutions searches journeys between two stations, by their LeFrecce names,
// departing on the date and hour of when.
func (c *Client) Solutions(ctx context.Context, from, to string, when time.Time) ([]Solution, error) {
	q := url.Values{
		"origin":       {from},
		"destination":  {to},
		"arflag":       {"A"},
		"adate":        {when.Format("02/01/2006")},
		"atime":        {when.Format("15")},
		"adultno":      {"1"},
		"childno":      {"0"},
		"direction":    {"A"},
		"frecce":       {"false"},
		"onlyRegional": {"false"},
	}

	var result []Solution
	if err := c.getJSON(ctx, c.baseURL+"/solutions?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SolutionDetails retrieves the leg breakdown of a solution.
func (c *Client) SolutionDetails(ctx context.Context, id string) (*DetailedSolution, error) {
	if cached, err := c.detailsCache.Get(id); err == nil {
		return cached.(*DetailedSolution), nil
	}

	var result DetailedSolution
	if err := c.getJSON(ctx, fmt.Sprintf("%s/solutions/%s/standardoffers", c.baseURL, url.PathEscape(id)), &result); err != nil {
		return nil, err
	}

	_ = c.detailsCache.Set(id, &result)
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "trenopal/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
