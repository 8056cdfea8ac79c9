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

// data.gov.in resource id for daily mandi (wholesale market) prices.
const mandiResourceID = "9ef84268-d588-465a-a308-a864a43d0070"

// MandiClient fetches commodity prices from a data.gov.in-style endpoint.
type MandiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewMandiClient(baseURL, apiKey string, hc *http.Client) *MandiClient {
	return &MandiClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, httpClient: hc}
}

type mandiRecord struct {
	State      string `json:"state"`
	District   string `json:"district"`
	Market     string `json:"market"`
	Commodity  string `json:"commodity"`
	MinPrice   string `json:"min_price"`
	MaxPrice   string `json:"max_price"`
	ModalPrice string `json:"modal_price"`
}

type mandiResponse struct {
	Records []mandiRecord `json:"records"`
}

func (c *MandiClient) Prices(ctx context.Context, state, district, crop string) ([]PriceRow, error) {
	q := url.Values{}
	if c.apiKey != "" {
		q.Set("api-key", c.apiKey)
	}
	q.Set("format", "json")
	q.Set("limit", "25")
	if state != "" {
		q.Set("filters[state]", state)
	}
	if district != "" {
		q.Set("filters[district]", district)
	}
	if crop != "" {
		q.Set("filters[commodity]", crop)
	}

	endpoint := c.baseURL + "/" + mandiResourceID + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating market request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending market request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading market response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market request failed: status %d", resp.StatusCode)
	}

	var parsed mandiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding market response: %w", err)
	}

	rows := make([]PriceRow, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		rows = append(rows, PriceRow{
			State:      rec.State,
			District:   rec.District,
			Market:     rec.Market,
			Crop:       rec.Commodity,
			MinPrice:   parsePrice(rec.MinPrice),
			MaxPrice:   parsePrice(rec.MaxPrice),
			ModalPrice: parsePrice(rec.ModalPrice),
		})
	}
	return rows, nil
}

// The feed serves prices as strings, occasionally "NR" (not reported).
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
