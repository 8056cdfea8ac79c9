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

// SoilGridsClient fetches topsoil properties from a soilgrids-style endpoint.
type SoilGridsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSoilGridsClient(baseURL string, hc *http.Client) *SoilGridsClient {
	return &SoilGridsClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

type soilGridsResponse struct {
	Properties struct {
		Layers []struct {
			Name        string `json:"name"`
			UnitMeasure struct {
				DFactor float64 `json:"d_factor"`
			} `json:"unit_measure"`
			Depths []struct {
				Values struct {
					Mean *float64 `json:"mean"`
				} `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}

func (c *SoilGridsClient) Fetch(ctx context.Context, lat, lon float64) (*SoilSnapshot, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	for _, p := range []string{"phh2o", "soc", "nitrogen"} {
		q.Add("property", p)
	}
	q.Set("depth", "0-5cm")
	q.Set("value", "mean")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/properties/query?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating soil request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending soil request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading soil response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("soil request failed: status %d", resp.StatusCode)
	}

	var parsed soilGridsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding soil response: %w", err)
	}

	snap := &SoilSnapshot{}
	for _, layer := range parsed.Properties.Layers {
		if len(layer.Depths) == 0 || layer.Depths[0].Values.Mean == nil {
			continue
		}
		val := *layer.Depths[0].Values.Mean
		if d := layer.UnitMeasure.DFactor; d > 0 {
			val /= d
		}
		switch layer.Name {
		case "phh2o":
			snap.PHWater = val
		case "soc":
			snap.OrganicCarbon = val
		case "nitrogen":
			snap.Nitrogen = val
		}
	}
	return snap, nil
}
