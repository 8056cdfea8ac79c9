package providers

import (
	"context"
	"net/http"

	"github.com/krishimitra/krishimitra/internal/config"
)

// India's geographic center, used when geocoding cannot resolve a place.
// Read-only tools never fail purely for missing coordinates.
const (
	DefaultLat = 22.9734
	DefaultLon = 78.6569
)

// Place is a resolved geographic location.
type Place struct {
	Name     string  `json:"name"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	District string  `json:"district"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// WeatherSnapshot is a point-in-time weather reading with a day-ahead
// rain probability.
type WeatherSnapshot struct {
	TempC           float64 `json:"temp_c"`
	Humidity        float64 `json:"humidity"`
	WindKph         float64 `json:"wind_kph"`
	RainProbability float64 `json:"rain_probability"`
	Condition       string  `json:"condition"`
}

// SoilSnapshot summarizes topsoil properties at a point.
type SoilSnapshot struct {
	PHWater       float64 `json:"ph_water"`
	OrganicCarbon float64 `json:"organic_carbon"` // g/kg
	Nitrogen      float64 `json:"nitrogen"`       // g/kg
}

// PriceRow is one mandi price record.
type PriceRow struct {
	State      string  `json:"state"`
	District   string  `json:"district"`
	Market     string  `json:"market"`
	Crop       string  `json:"crop"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	ModalPrice float64 `json:"modal_price"`
}

// Geocoder resolves place names to coordinates and back. Best-effort:
// callers tolerate empty results.
type Geocoder interface {
	Forward(ctx context.Context, name string) (*Place, error)
	Reverse(ctx context.Context, lat, lon float64) (*Place, error)
}

// WeatherClient fetches a weather snapshot for coordinates.
type WeatherClient interface {
	Fetch(ctx context.Context, lat, lon float64) (*WeatherSnapshot, error)
}

// SoilClient fetches a soil snapshot for coordinates.
type SoilClient interface {
	Fetch(ctx context.Context, lat, lon float64) (*SoilSnapshot, error)
}

// MarketClient fetches mandi price rows, all filters optional.
type MarketClient interface {
	Prices(ctx context.Context, state, district, crop string) ([]PriceRow, error)
}

// Set bundles every provider client built from one config.
type Set struct {
	Geocoder Geocoder
	Weather  WeatherClient
	Soil     SoilClient
	Market   MarketClient
}

// NewSet constructs HTTP-backed clients sharing one timeout-bearing client.
func NewSet(cfg config.ProvidersConfig) *Set {
	hc := &http.Client{Timeout: cfg.Timeout}
	return &Set{
		Geocoder: NewNominatimGeocoder(cfg.GeocodeBaseURL, hc),
		Weather:  NewOpenMeteoClient(cfg.WeatherBaseURL, hc),
		Soil:     NewSoilGridsClient(cfg.SoilBaseURL, hc),
		Market:   NewMandiClient(cfg.MarketBaseURL, cfg.MarketAPIKey, hc),
	}
}
