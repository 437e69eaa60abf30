// Package viaggiatreno is a client for the ViaggiaTreno train-operations API.
package viaggiatreno

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

const DefaultBaseURL = "http://www.viaggiatreno.it/infomobilita/resteasy/viaggiatreno"

// Client is a ViaggiaTreno API client.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	stationCache gcache.Cache
}

// NewClient creates a new ViaggiaTreno client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		stationCache: gcache.New(512).
			LRU().
			Expiration(24 * time.Hour).
			Build(),
	}
}

// SearchSolutions finds journeys between two stations identified by their
// numeric codes, departing from the given local time.
func (c *Client) SearchSolutions(ctx context.Context, from, to string, when time.Time) (*SolutionsResponse, error) {
	u := fmt.Sprintf("%s/soluzioniViaggioNew/%s/%s/%s",
		c.baseURL, url.PathEscape(from), url.PathEscape(to), when.Format("2006-01-02T15:04:05"))

	var result SolutionsResponse
	if err := c.getJSON(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AutocompleteStation returns stations whose name starts with the given
// text, best match first. An empty slice means nothing was found.
func (c *Client) AutocompleteStation(ctx context.Context, name string) ([]StationMatch, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if cached, err := c.stationCache.Get(key); err == nil {
		return cached.([]StationMatch), nil
	}

	rows, err := c.getRows(ctx, fmt.Sprintf("%s/autocompletaStazione/%s", c.baseURL, url.PathEscape(name)))
	if err != nil {
		return nil, err
	}

	matches := make([]StationMatch, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("unexpected station row %q", strings.Join(row, "|"))
		}
		matches = append(matches, StationMatch{Name: row[0], Key: row[1]})
	}

	_ = c.stationCache.Set(key, matches)
	return matches, nil
}

// AutocompleteTrain returns the trains running with the given number. More
// than one row means the number is shared by trains with different origins.
func (c *Client) AutocompleteTrain(ctx context.Context, number string) ([]TrainMatch, error) {
	rows, err := c.getRows(ctx, fmt.Sprintf("%s/cercaNumeroTrenoTrenoAutocomplete/%s", c.baseURL, url.PathEscape(number)))
	if err != nil {
		return nil, err
	}

	matches := make([]TrainMatch, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("unexpected train row %q", strings.Join(row, "|"))
		}
		parts := strings.Split(row[1], "-")
		if len(parts) < 2 {
			return nil, fmt.Errorf("unexpected train code %q", row[1])
		}
		m := TrainMatch{
			Description: strings.TrimSpace(row[0]),
			Number:      parts[0],
			OriginKey:   parts[1],
		}
		if len(parts) > 2 {
			if ms, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				m.DepartureDate = ms
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// TrainProgress retrieves the stop-by-stop progress of a train that started
// at the given origin station.
func (c *Client) TrainProgress(ctx context.Context, originKey, number string, at time.Time) ([]ProgressStop, error) {
	u := fmt.Sprintf("%s/tratteCanvas/%s/%s/%d",
		c.baseURL, url.PathEscape(originKey), url.PathEscape(number), at.UnixMilli())

	var result []ProgressStop
	if err := c.getJSON(ctx, u, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "trenopal/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	resp, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// getRows reads a newline separated, pipe delimited text response.
func (c *Client) getRows(ctx context.Context, u string) ([][]string, error) {
	resp, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows [][]string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "|"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return rows, nil
}
