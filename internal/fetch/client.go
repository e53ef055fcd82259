// internal/fetch/client.go
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ecoscope/geosync/internal/geo"
	"github.com/ecoscope/geosync/pkg/core"
)

// ErrNetwork is returned for transport failures and non-2xx responses.
// The caller does not retry; the next monitor tick re-attempts naturally.
var ErrNetwork = errors.New("observation fetch failed")

// ErrParse is returned for malformed payloads. The whole batch is rejected
// rather than admitting a partial, under-populated result.
var ErrParse = errors.New("observation payload malformed")

// DefaultMaxResults caps a single query when no explicit cap is configured.
const DefaultMaxResults = 100

// Client queries the remote biodiversity API for observation records.
// It is stateless between calls.
type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// New creates an API client. maxResults <= 0 falls back to DefaultMaxResults.
func New(baseURL string, maxResults int, timeout time.Duration) *Client {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves photo-bearing, non-captive, research-grade observations
// inside the region, newest first. Records that are individually ineligible
// (no parseable location, no taxon label, duplicate id) are skipped; a
// payload that cannot be decoded at all rejects the batch with ErrParse.
func (c *Client) Fetch(ctx context.Context, region core.Region) ([]core.Observation, error) {
	if !region.Valid() {
		return nil, fmt.Errorf("%w: invalid region", ErrParse)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(region), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrNetwork, resp.Status)
	}

	var payload observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	records := make([]core.Observation, 0, len(payload.Results))
	seen := make(map[int64]struct{}, len(payload.Results))
	for _, raw := range payload.Results {
		obs, ok := convertResult(raw)
		if !ok {
			continue
		}
		if _, dup := seen[obs.ID]; dup {
			continue
		}
		seen[obs.ID] = struct{}{}
		records = append(records, obs)
	}
	return records, nil
}

// queryURL builds the bounded-region query string.
func (c *Client) queryURL(region core.Region) string {
	params := url.Values{}
	params.Set("swlat", formatFloat(region.South))
	params.Set("swlng", formatFloat(region.West))
	params.Set("nelat", formatFloat(region.North))
	params.Set("nelng", formatFloat(region.East))
	params.Set("per_page", strconv.Itoa(c.maxResults))
	params.Set("order", "desc")
	params.Set("order_by", "created_at")
	params.Set("photos", "true")
	params.Set("captive", "false")
	params.Set("quality_grade", "research")
	return c.baseURL + "/observations?" + params.Encode()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// convertResult maps a raw API result onto a core.Observation. ok is false
// when the record is ineligible for spawning and should be skipped.
func convertResult(raw observationResult) (core.Observation, bool) {
	if raw.ID == 0 || raw.Location == "" {
		return core.Observation{}, false
	}
	coord, err := geo.ParseLatLng(raw.Location)
	if err != nil {
		return core.Observation{}, false
	}

	obs := core.Observation{
		ID:          raw.ID,
		Coordinate:  coord,
		ObservedOn:  raw.ObservedOn,
		SubmittedAt: raw.CreatedAt,
		Submitter:   raw.User.Login,
	}
	if raw.Taxon != nil {
		obs.Taxon = core.Taxon{
			CommonName:     raw.Taxon.PreferredCommonName,
			ScientificName: raw.Taxon.Name,
			IconicGroup:    raw.Taxon.IconicTaxonName,
		}
	}
	for _, p := range raw.Photos {
		if p.URL != "" {
			obs.PhotoURLs = append(obs.PhotoURLs, p.URL)
		}
	}

	if !obs.Spawnable() {
		return core.Observation{}, false
	}
	return obs, true
}
