package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimReverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocoder resolves a coordinate pair into a human-readable address
// using the OSM Nominatim API. Results are memoized for the lifetime of the
// geocoder, keyed by the coordinates rounded to 6 decimal places, so
// repeated lookups for the same point cost one request per session.
type ReverseGeocoder struct {
	http    *http.Client
	baseURL string

	mu    sync.Mutex
	cache map[string]string
}

// NewReverseGeocoder creates a geocoder against the given Nominatim base
// URL. An empty baseURL selects the public OSM instance.
func NewReverseGeocoder(baseURL string) *ReverseGeocoder {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &ReverseGeocoder{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		cache:   make(map[string]string),
	}
}

// Lookup returns the address for a point, best effort. Failures (network,
// non-2xx, unknown location) return an error; callers degrade to a
// "not available" placeholder instead of blocking the selection flow.
// Only successful lookups are cached.
func (g *ReverseGeocoder) Lookup(ctx context.Context, lat, lng float64) (string, error) {
	key := cacheKey(lat, lng)

	g.mu.Lock()
	if addr, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return addr, nil
	}
	g.mu.Unlock()

	u := g.baseURL + "/reverse?" + url.Values{
		"lat":    {fmt.Sprintf("%.6f", lat)},
		"lon":    {fmt.Sprintf("%.6f", lng)},
		"format": {"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "civimap/0.1 (municipal report map)")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocoding returned status %d", resp.StatusCode)
	}

	var result nominatimReverseResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding reverse geocoding response: %w", err)
	}
	if result.Error != "" || result.DisplayName == "" {
		return "", fmt.Errorf("no address for %.6f, %.6f", lat, lng)
	}

	g.mu.Lock()
	g.cache[key] = result.DisplayName
	g.mu.Unlock()

	return result.DisplayName, nil
}

// CacheSize returns how many addresses are memoized.
func (g *ReverseGeocoder) CacheSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cache)
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lng)
}
