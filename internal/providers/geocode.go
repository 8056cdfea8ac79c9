package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// NominatimGeocoder resolves places against a nominatim-style endpoint.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

func NewNominatimGeocoder(baseURL string, hc *http.Client) *NominatimGeocoder {
	return &NominatimGeocoder{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

type nominatimAddress struct {
	Village       string `json:"village"`
	Town          string `json:"town"`
	City          string `json:"city"`
	StateDistrict string `json:"state_district"`
	State         string `json:"state"`
}

type nominatimResult struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

// Forward resolves a place name to coordinates. Returns nil when the
// service finds nothing.
func (g *NominatimGeocoder) Forward(ctx context.Context, name string) (*Place, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	q.Set("countrycodes", "in")

	body, err := g.get(ctx, "/search", q)
	if err != nil {
		return nil, err
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decoding geocode results: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return toPlace(results[0]), nil
}

// Reverse resolves coordinates to a named place. Returns nil when the
// service finds nothing.
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")

	body, err := g.get(ctx, "/reverse", q)
	if err != nil {
		return nil, err
	}

	var result nominatimResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding reverse geocode result: %w", err)
	}
	if result.DisplayName == "" {
		return nil, nil
	}
	p := toPlace(result)
	if p.Lat == 0 && p.Lon == 0 {
		p.Lat, p.Lon = lat, lon
	}
	return p, nil
}

func (g *NominatimGeocoder) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "krishimitra/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request failed: status %d", resp.StatusCode)
	}
	return body, nil
}

func toPlace(r nominatimResult) *Place {
	lat, _ := strconv.ParseFloat(r.Lat, 64)
	lon, _ := strconv.ParseFloat(r.Lon, 64)

	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}

	name := r.Name
	if name == "" {
		name = city
	}

	return &Place{
		Name:     name,
		City:     city,
		State:    r.Address.State,
		District: r.Address.StateDistrict,
		Lat:      lat,
		Lon:      lon,
	}
}
